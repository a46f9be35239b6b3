// Package normalize turns Markdown- and HTML-bearing text into clean prose
// suitable for a language model's context window.
//
// Normalization is an ordered sequence of small passes (see Passes). Each pass
// is exported so it can be tested on its own; Normalize runs the whole
// sequence. The package does no I/O and never fails.
package normalize
