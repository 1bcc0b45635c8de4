// Package archive streams a pass package as a ZIP archive.
//
// The Assembler enforces the package layout: content entries first, then
// the manifest, then the signature, and only then the central directory.
package archive
