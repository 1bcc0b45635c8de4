// Package signature loads the signer trust chain and produces the detached
// PKCS#7 signature over a pass manifest.
//
// The signature embeds the intermediate authority and the leaf certificate,
// uses SHA-256 as the message digest algorithm and carries the content type,
// message digest and signing time as authenticated attributes. The manifest
// itself is not embedded; verifiers re-hash it.
package signature
