package signature

import (
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/digitorus/pkcs7"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
)

// errNoTrustChain is returned by a Signer built without a chain.
var errNoTrustChain = errors.New("trust chain is not set")

// Signer produces detached manifest signatures with one trust chain.
// It holds no mutable state and is safe for concurrent use.
type Signer struct {
	chain *TrustChain
}

// NewSigner creates a Signer for chain.
func NewSigner(chain *TrustChain) *Signer {
	return &Signer{
		chain: chain,
	}
}

// Sign returns the DER encoded detached SignedData over manifest.
//
// Certificates are embedded as intermediate then leaf. The authenticated
// attributes are content type (data), message digest (SHA-256 of manifest)
// and signing time (now, UTC).
func (s *Signer) Sign(manifest []byte) ([]byte, error) {
	if s == nil || s.chain == nil {
		return nil, &pass.SignatureError{Op: "sign", Err: errNoTrustChain}
	}

	signedData, err := pkcs7.NewSignedData(manifest)
	if err != nil {
		return nil, &pass.SignatureError{Op: "initialize signed data", Err: err}
	}

	signedData.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	signedData.AddCertificate(s.chain.intermediate)

	// AddSigner attaches the leaf and the three authenticated attributes.
	if err = signedData.AddSigner(s.chain.leaf, s.chain.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, &pass.SignatureError{Op: "add signer", Err: err}
	}

	signedData.Detach()

	der, err := signedData.Finish()
	if err != nil {
		return nil, &pass.SignatureError{Op: "encode signed data", Err: err}
	}

	return der, nil
}

// Verify checks a detached signature against manifest. When roots is not
// nil the signer certificate must also chain to one of them.
func Verify(manifest, signature []byte, roots *x509.CertPool) error {
	parsed, err := pkcs7.Parse(signature)
	if err != nil {
		return &pass.SignatureError{Op: "parse signature", Err: err}
	}

	parsed.Content = manifest

	if err = parsed.VerifyWithChain(roots); err != nil {
		return &pass.SignatureError{Op: "verify signature", Err: fmt.Errorf("manifest does not match: %w", err)}
	}

	return nil
}
