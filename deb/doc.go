// Package deb builds Debian binary packages (.deb) from a directory tree.
//
// # Design Philosophy
//
// A package is produced by a strictly sequential pipeline: the control file
// is parsed and validated, the payload is scanned, both tar archives are
// staged in memory and the ar container is written to its final path in a
// single atomic rename. Nothing is shelled out: no 'dpkg-deb', no 'tar',
// no 'ar'. Given the same inputs and the same ModTime, the output is
// byte-for-byte identical.
//
// # Features
//
// Metadata:
//   - Parse control files, folding continuation lines, keeping field order.
//   - Validate the mandatory fields and derive Installed-Size from the payload.
//   - Optionally render the control file as a text/template.
//
// Archives:
//   - Root-owned, lexically ordered data and control archives.
//   - gzip, xz, zstd or no compression.
//   - md5sums and maintainer scripts with their conventional modes.
//
// Container:
//   - ar framing with fixed-width headers, written atomically.
//   - Read back and verify an existing package.
package deb
