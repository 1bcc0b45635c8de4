// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the pass service with timeouts
// and retries, and detects the current system actor (username@hostname)
// for the server audit log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
