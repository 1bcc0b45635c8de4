// Package pass implements the gRPC transport for pass issuance.
//
// BuildPass prepares the whole package before the first chunk is sent and
// then streams the archive in bounded BytesValue messages.
package pass
