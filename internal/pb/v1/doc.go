// Package pb declares the passkit.v1 gRPC contract.
//
// Messages are the protobuf well-known wrappers, so the service needs no
// generated message code: BuildPass takes a StringValue holding the
// credential value and streams the archive back as BytesValue chunks.
// The contract is kept in proto/passkit/v1/pass.proto and the descriptor
// in this package must match it.
package pb
