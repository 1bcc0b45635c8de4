// Package builder turns a credential value into a signed pass package.
//
// Prepare renders the three barcode strips in parallel, waits for all of
// them, builds and signs the manifest, and returns a Package that holds
// every entry in memory. Nothing reaches a sink until the whole package is
// ready, so a failing request never emits partial output.
package builder
