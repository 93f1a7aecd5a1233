// Package devfiles owns the on-disk layout of the python_dev directory.
//
// Ownership boundary:
// - locating the python_dev directory from a working directory
// - python.org architecture names and their local directory names
// - python.org version strings
package devfiles
