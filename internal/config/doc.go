// Package config defines the settings used by the pass binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Environment variables MBP_PORT, MBP_APPLE_WWDR_CERTIFICATE,
// MBP_CERTIFICATE and MBP_PRIVATE_KEY override the file.
package config
