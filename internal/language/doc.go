// Package language normalizes caption language preferences and the language
// codes reported by caption tracks to base ISO 639-1 codes.
package language
