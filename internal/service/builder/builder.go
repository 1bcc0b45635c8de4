package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bitloom/mobile-barcode-pass/internal/archive"
	"github.com/bitloom/mobile-barcode-pass/internal/barcode"
	"github.com/bitloom/mobile-barcode-pass/internal/digest"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
)

// Signer produces a detached signature over serialized manifest bytes.
type Signer interface {
	Sign(manifest []byte) ([]byte, error)
}

// VerifyFunc checks a signature against the manifest it was made for.
type VerifyFunc func(manifest, signature []byte) error

// RenderFunc rasterizes value at scale.
type RenderFunc func(value string, scale barcode.Scale) ([]byte, error)

// Option configures a Builder.
type Option func(*Builder)

// WithVerifier makes Prepare check every fresh signature before returning.
func WithVerifier(verify VerifyFunc) Option {
	return func(b *Builder) {
		b.verify = verify
	}
}

// WithRenderer replaces the barcode rasterizer.
func WithRenderer(render RenderFunc) Option {
	return func(b *Builder) {
		b.render = render
	}
}

// Builder holds the immutable inputs shared by every request.
// It is safe for concurrent use.
type Builder struct {
	// assets are the allowlisted static template files.
	assets []pass.Asset
	// descriptor is the template every request copies.
	descriptor pass.Descriptor
	// signer signs serialized manifests.
	signer Signer
	// verify optionally checks signatures after signing.
	verify VerifyFunc
	// render rasterizes one barcode strip.
	render RenderFunc
}

var (
	// ErrNoSigner is returned when a Builder is created without a signer.
	ErrNoSigner = errors.New("no signer configured")
	// ErrNoAssets is returned when a Builder is created without static assets.
	ErrNoAssets = errors.New("no static assets configured")
)

// New creates a Builder. The assets slice is copied.
func New(assets []pass.Asset, descriptor pass.Descriptor, signer Signer, opts ...Option) (*Builder, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}

	if len(assets) == 0 {
		return nil, ErrNoAssets
	}

	b := &Builder{
		assets:     append([]pass.Asset(nil), assets...),
		descriptor: descriptor,
		signer:     signer,
		render:     barcode.Render,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Package is a fully built pass kept in memory until it is written.
type Package struct {
	// Assets are the static template files.
	Assets []pass.Asset
	// Barcodes are the strips at 1x, 2x and 3x.
	Barcodes []pass.Asset
	// Descriptor is the rendered pass.json.
	Descriptor []byte
	// Manifest maps every content entry to its digest.
	Manifest *pass.Manifest
	// ManifestJSON is the exact manifest.json payload that was signed.
	ManifestJSON []byte
	// Signature is the detached signature over ManifestJSON.
	Signature []byte
	// Created is stamped on every archive entry.
	Created time.Time
}

// Prepare builds every artifact of the package for value.
func (b *Builder) Prepare(ctx context.Context, value string) (*Package, error) {
	started := time.Now()

	barcodes, err := b.renderAll(ctx, value)
	if err != nil {
		return nil, err
	}

	descriptor, err := b.descriptor.WithCredential(value).Render()
	if err != nil {
		return nil, &pass.ManifestError{Entry: pass.DescriptorFilename, Err: err}
	}

	manifest, err := pass.BuildManifest(digest.Hex, b.assets, barcodes, descriptor)
	if err != nil {
		return nil, err
	}

	manifestJSON, err := manifest.Serialize()
	if err != nil {
		return nil, &pass.ManifestError{Err: err}
	}

	signature, err := b.signer.Sign(manifestJSON)
	if err != nil {
		return nil, err
	}

	if b.verify != nil {
		if err = b.verify(manifestJSON, signature); err != nil {
			return nil, err
		}
	}

	logger.DebugKV(ctx, "Pass prepared",
		"entries", manifest.Len(),
		"signature_bytes", len(signature),
		"elapsed", time.Since(started),
	)

	return &Package{
		Assets:       b.assets,
		Barcodes:     barcodes,
		Descriptor:   descriptor,
		Manifest:     manifest,
		ManifestJSON: manifestJSON,
		Signature:    signature,
		Created:      time.Now(),
	}, nil
}

// Build prepares the package for value and writes it to w.
// Nothing is written when preparation fails.
func (b *Builder) Build(ctx context.Context, value string, w io.Writer) error {
	pkg, err := b.Prepare(ctx, value)
	if err != nil {
		return err
	}

	_, err = pkg.WriteTo(w)

	return err
}

// renderAll renders every scale concurrently and joins on all of them.
func (b *Builder) renderAll(ctx context.Context, value string) ([]pass.Asset, error) {
	scales := barcode.Scales()
	strips := make([]pass.Asset, len(scales))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, scale := range scales {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			content, err := b.render(value, scale)
			if err != nil {
				return err
			}

			strips[i] = pass.Asset{
				Name:    scale.Filename(),
				Content: content,
			}

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		var renderErr *pass.RenderError
		if errors.As(err, &renderErr) {
			return nil, err
		}

		return nil, fmt.Errorf("render barcodes: %w", err)
	}

	return strips, nil
}

// Entries returns every content entry in archive order: static assets,
// barcode strips, then the descriptor.
func (p *Package) Entries() []pass.Asset {
	entries := make([]pass.Asset, 0, len(p.Assets)+len(p.Barcodes)+1)
	entries = append(entries, p.Assets...)
	entries = append(entries, p.Barcodes...)

	return append(entries, pass.Asset{Name: pass.DescriptorFilename, Content: p.Descriptor})
}

// WriteTo streams the package as a ZIP archive. It implements io.WriterTo.
func (p *Package) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}

	assembler := archive.NewAssembler(counter, archive.WithModified(p.Created))

	if err := assembler.AppendAssets(p.Entries()); err != nil {
		return counter.n, err
	}

	if err := assembler.AppendManifest(p.ManifestJSON); err != nil {
		return counter.n, err
	}

	if err := assembler.AppendSignature(p.Signature); err != nil {
		return counter.n, err
	}

	if err := assembler.Close(); err != nil {
		return counter.n, err
	}

	return counter.n, nil
}

// countingWriter tracks how many bytes reached the sink.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
