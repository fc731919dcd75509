// Package fsutil provides the filesystem operations shared by the builder and
// the repository: checksums, tree listing and copying, timestamp pinning, and
// source archive extraction.
package fsutil
