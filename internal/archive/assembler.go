package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
)

// phase tracks how far an archive has progressed.
type phase int

const (
	phaseContent phase = iota
	phaseManifest
	phaseSigned
	phaseClosed
)

var (
	// ErrSealed is returned when content is appended after the manifest.
	ErrSealed = errors.New("package is sealed by its manifest")
	// ErrOutOfOrder is returned when the signature precedes the manifest.
	ErrOutOfOrder = errors.New("signature must follow the manifest")
	// ErrIncomplete is returned when closing without manifest or signature.
	ErrIncomplete = errors.New("package has no manifest or signature")
	// ErrClosed is returned for any call after Close.
	ErrClosed = errors.New("archive is closed")

	// errInvalidName is returned for names that are not canonical archive paths.
	errInvalidName = errors.New("invalid entry name")
	// errDuplicateName is returned for a name that was already written.
	errDuplicateName = errors.New("duplicate entry name")
)

// Option configures an Assembler.
type Option func(*Assembler)

// WithModified sets the modification time recorded for every entry.
// A zero time keeps the default.
func WithModified(modified time.Time) Option {
	return func(a *Assembler) {
		if !modified.IsZero() {
			a.modified = modified
		}
	}
}

// Assembler writes package entries to a sink as they are appended.
// It is not safe for concurrent use.
type Assembler struct {
	// zw encodes entries and the central directory onto the sink.
	zw *zip.Writer
	// names records written entries in order.
	names []string
	// seen guards against duplicate names.
	seen map[string]struct{}
	// modified is stamped on every entry header.
	modified time.Time
	// phase is the current layout phase.
	phase phase
}

// NewAssembler starts an archive on sink. Nothing is written until the
// first entry is appended.
func NewAssembler(sink io.Writer, opts ...Option) *Assembler {
	a := &Assembler{
		zw:       zip.NewWriter(sink),
		seen:     make(map[string]struct{}),
		modified: time.Now(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Append writes a content entry: a static asset, a barcode image or the
// descriptor. Content is stored exactly as given.
func (a *Assembler) Append(name string, content []byte) error {
	switch a.phase {
	case phaseContent:
	case phaseClosed:
		return &pass.AssemblyError{Entry: name, Err: ErrClosed}
	default:
		return &pass.AssemblyError{Entry: name, Err: ErrSealed}
	}

	if name == pass.ManifestFilename || name == pass.SignatureFilename {
		return &pass.AssemblyError{Entry: name, Err: fmt.Errorf("%w: reserved", errInvalidName)}
	}

	return a.write(name, content)
}

// AppendAssets writes every asset in order.
func (a *Assembler) AppendAssets(assets []pass.Asset) error {
	for _, asset := range assets {
		if err := a.Append(asset.Name, asset.Content); err != nil {
			return err
		}
	}

	return nil
}

// AppendManifest writes manifest.json and seals the content entries.
func (a *Assembler) AppendManifest(manifest []byte) error {
	switch a.phase {
	case phaseContent:
	case phaseClosed:
		return &pass.AssemblyError{Entry: pass.ManifestFilename, Err: ErrClosed}
	default:
		return &pass.AssemblyError{Entry: pass.ManifestFilename, Err: errDuplicateName}
	}

	if err := a.write(pass.ManifestFilename, manifest); err != nil {
		return err
	}

	a.phase = phaseManifest

	return nil
}

// AppendSignature writes the signature entry. It must follow the manifest.
func (a *Assembler) AppendSignature(signature []byte) error {
	switch a.phase {
	case phaseManifest:
	case phaseContent:
		return &pass.AssemblyError{Entry: pass.SignatureFilename, Err: ErrOutOfOrder}
	case phaseClosed:
		return &pass.AssemblyError{Entry: pass.SignatureFilename, Err: ErrClosed}
	default:
		return &pass.AssemblyError{Entry: pass.SignatureFilename, Err: errDuplicateName}
	}

	if err := a.write(pass.SignatureFilename, signature); err != nil {
		return err
	}

	a.phase = phaseSigned

	return nil
}

// Close writes the central directory. It refuses to finalize a package
// that has no signature. The sink itself is not closed.
func (a *Assembler) Close() error {
	switch a.phase {
	case phaseSigned:
	case phaseClosed:
		return &pass.AssemblyError{Err: ErrClosed}
	default:
		return &pass.AssemblyError{Err: ErrIncomplete}
	}

	a.phase = phaseClosed

	if err := a.zw.Close(); err != nil {
		return &pass.AssemblyError{Err: fmt.Errorf("finalize archive: %w", err)}
	}

	return nil
}

// write validates name and stores one deflated entry.
func (a *Assembler) write(name string, content []byte) error {
	if err := validateName(name); err != nil {
		return &pass.AssemblyError{Entry: name, Err: err}
	}

	if _, found := a.seen[name]; found {
		return &pass.AssemblyError{Entry: name, Err: errDuplicateName}
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.modified,
	}

	w, err := a.zw.CreateHeader(header)
	if err != nil {
		return &pass.AssemblyError{Entry: name, Err: err}
	}

	if _, err = w.Write(content); err != nil {
		return &pass.AssemblyError{Entry: name, Err: err}
	}

	a.seen[name] = struct{}{}
	a.names = append(a.names, name)

	return nil
}

// validateName accepts only relative, clean, forward-slash paths.
func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", errInvalidName)
	case strings.Contains(name, `\`):
		return fmt.Errorf("%w: backslash in %q", errInvalidName, name)
	case strings.HasPrefix(name, "/"):
		return fmt.Errorf("%w: absolute path %q", errInvalidName, name)
	case strings.HasSuffix(name, "/"):
		return fmt.Errorf("%w: directory %q", errInvalidName, name)
	case path.Clean(name) != name || name == ".." || strings.HasPrefix(name, "../"):
		return fmt.Errorf("%w: non-canonical path %q", errInvalidName, name)
	}

	return nil
}
