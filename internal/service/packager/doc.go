// Package packager implements the pass-builder command.
//
// It runs the pass pipeline offline with the configured trust chain and
// writes the resulting package to a file. The file appears atomically: a
// temporary file in the target directory is renamed into place only after
// the archive is complete.
package packager
