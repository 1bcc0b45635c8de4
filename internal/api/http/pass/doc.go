// Package pass implements the HTTP transport for pass issuance.
//
// It decodes the credential value, asks the service for a fully prepared
// package and streams it as a ZIP download. Pipeline failures are reported
// with a generic body; details only reach the log.
package pass
