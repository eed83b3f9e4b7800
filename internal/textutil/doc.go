// Package textutil normalizes and compares short texts such as episode and
// video titles.
//
// Normalize applies NFKD decomposition, strips combining marks, case-folds,
// and collapses punctuation. Fingerprints are term-frequency vectors over the
// normalized tokens (three or more characters, minus a small stopword list)
// and are compared with cosine similarity.
package textutil
