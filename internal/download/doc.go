// Package download drives one fetch-and-extract run for a version and arch.
//
// Ownership boundary:
// - artifact placement (arch dir, or a cache in python.org FTP layout)
// - skip-if-already-fetched decisions against the manifest
// - extraction ordering
package download
