// Package client implements the pass-client command.
//
// It asks a running pass-server for a pass over gRPC and writes the
// complete archive to a file or to standard output.
package client
