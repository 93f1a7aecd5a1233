// Package tools provides the subprocess runner shared by the extraction and
// symlink flows.
//
// Ownership boundary:
// - command execution helpers
//
// - exit-code normalization (127 for "binary not found")
package tools
