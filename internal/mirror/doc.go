// Package mirror serves an artifact cache over HTTP in the python.org FTP
// layout, so other machines can point their base URL at it.
//
// Ownership boundary:
// - static artifact routes under /ftp/python/
// - health, readiness and metrics endpoints
// - cache listing
package mirror
