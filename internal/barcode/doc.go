// Package barcode renders the Code 39 strip images of a pass.
//
// A pass ships the same barcode at three pixel densities. Each density is
// an independent Render call, so callers may render them concurrently.
package barcode
