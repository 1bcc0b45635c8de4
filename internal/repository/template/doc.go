// Package template loads the static pass assets from a file system.
//
// The FSRepository walks a template tree, keeps only allowlisted regular
// files and returns them in lexical order. Assets are read once and then
// shared read-only across requests.
package template
