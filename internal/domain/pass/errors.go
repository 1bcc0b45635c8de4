package pass

import (
	"errors"
	"fmt"
)

// Stage names a step of the package pipeline.
type Stage string

// Pipeline stages, in execution order.
const (
	StageUnknown   Stage = "unknown"
	StageRender    Stage = "render"
	StageManifest  Stage = "manifest"
	StageSignature Stage = "signature"
	StageAssembly  Stage = "assembly"
)

// RenderError reports that a barcode could not be rendered, either because
// the value holds characters the symbology cannot encode or because the
// rasterizer failed.
type RenderError struct {
	// Scale is the multiplier being rendered when the failure happened.
	Scale int
	// Err is the underlying cause.
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render barcode at scale %d: %v", e.Scale, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ManifestError reports a missing or malformed manifest input.
type ManifestError struct {
	// Entry is the archive entry name the problem relates to, if any.
	Entry string
	// Err is the underlying cause.
	Err error
}

func (e *ManifestError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("build manifest: %v", e.Err)
	}

	return fmt.Sprintf("build manifest entry %q: %v", e.Entry, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// SignatureError reports malformed trust chain material or a signing fault.
// It never carries certificate or key bytes.
type SignatureError struct {
	// Op is a short description of the failed operation.
	Op string
	// Err is the underlying cause.
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("signature: %s: %v", e.Op, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// AssemblyError reports that the archive could not be written to its sink.
type AssemblyError struct {
	// Entry is the archive entry being written, empty when finalizing.
	Entry string
	// Err is the underlying cause.
	Err error
}

func (e *AssemblyError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("assemble package: %v", e.Err)
	}

	return fmt.Sprintf("assemble package entry %q: %v", e.Entry, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// StageOf reports which pipeline stage produced err.
func StageOf(err error) Stage {
	var (
		renderErr    *RenderError
		manifestErr  *ManifestError
		signatureErr *SignatureError
		assemblyErr  *AssemblyError
	)

	switch {
	case errors.As(err, &renderErr):
		return StageRender
	case errors.As(err, &manifestErr):
		return StageManifest
	case errors.As(err, &signatureErr):
		return StageSignature
	case errors.As(err, &assemblyErr):
		return StageAssembly
	default:
		return StageUnknown
	}
}
