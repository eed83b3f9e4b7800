// Package config reads podwatch.toml and fills in everything it leaves out.
//
// Lookup order is an explicit --config path, ~/.config/podwatch/config.toml,
// then ./podwatch.toml; when none exists the built-in defaults are used.
// After decoding, paths are tilde-expanded, caption languages are normalized
// to ISO 639-1, and the LLM key falls back to PODWATCH_LLM_API_KEY and then
// OPENROUTER_API_KEY. Validate rejects values the pipeline cannot run with,
// such as a non-positive worker count or a match threshold outside [0,1].
package config
