//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	"github.com/bitloom/mobile-barcode-pass/internal/repository/template"
	"github.com/bitloom/mobile-barcode-pass/internal/service/builder"
	"github.com/bitloom/mobile-barcode-pass/internal/signature"
	"github.com/bitloom/mobile-barcode-pass/resources"
)

// NewBuilder loads the trust chain and template once and wires the pass
// pipeline. Any failure here is fatal for the process.
func NewBuilder(ctx context.Context, settings *config.Config) (*builder.Builder, error) {
	intermediate, certificate, key, err := settings.TrustChain.Read()
	if err != nil {
		return nil, fmt.Errorf("read trust chain: %w", err)
	}

	chain, err := signature.ParseTrustChain(intermediate, certificate, key)
	if err != nil {
		return nil, fmt.Errorf("load trust chain: %w", err)
	}

	logger.InfoKV(ctx, "Trust chain loaded",
		"signer", chain.Leaf().Subject.CommonName,
		"signer_not_after", chain.Leaf().NotAfter,
		"intermediate", chain.Intermediate().Subject.CommonName,
	)

	repo := templateRepository(ctx, settings)

	assets, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	var opts []builder.Option
	if settings.VerifySignature {
		opts = append(opts, builder.WithVerifier(func(manifest, sig []byte) error {
			return signature.Verify(manifest, sig, nil)
		}))
	}

	b, err := builder.New(assets, settings.PassDescriptor(), signature.NewSigner(chain), opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize builder: %w", err)
	}

	return b, nil
}

// templateRepository picks the configured directory or the embedded template.
//
//nolint:ireturn // Callers only need the Repository behaviour.
func templateRepository(ctx context.Context, settings *config.Config) template.Repository {
	if settings.TemplateDir != "" {
		logger.InfoKV(ctx, "Using template directory", "path", settings.TemplateDir)

		return template.NewDirRepository(settings.TemplateDir, pass.DefaultAllowlist())
	}

	return template.NewFSRepository(resources.Template(), pass.DefaultAllowlist())
}
