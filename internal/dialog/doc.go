// Package dialog parses, relabels, and merges diarized dialog text.
//
// Diarized text is one speaker turn per line in the form "Label: text",
// optionally with a bracketed timestamp after the label. Lines without a
// recognised label continue the previous turn.
package dialog
