package signature

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
)

// PEM block types accepted for the signer key.
const (
	pemTypeCertificate  = "CERTIFICATE"
	pemTypePKCS1Key     = "RSA PRIVATE KEY"
	pemTypeECKey        = "EC PRIVATE KEY"
	pemTypePKCS8Key     = "PRIVATE KEY"
	pemTypeEncryptedKey = "ENCRYPTED PRIVATE KEY"
)

var (
	// errNoPEMBlock is returned when input holds no PEM block of the expected type.
	errNoPEMBlock = errors.New("no PEM block found")
	// errUnexpectedPEMType is returned for a PEM block of the wrong type.
	errUnexpectedPEMType = errors.New("unexpected PEM block type")
	// errEncryptedKey is returned for passphrase protected keys.
	errEncryptedKey = errors.New("encrypted private keys are not supported")
	// errUnsupportedKey is returned for key types that cannot sign.
	errUnsupportedKey = errors.New("unsupported private key type")
	// errKeyMismatch is returned when the key does not belong to the leaf certificate.
	errKeyMismatch = errors.New("private key does not match the signer certificate")
)

// TrustChain is the immutable signer identity: the intermediate authority,
// the leaf certificate and the leaf's private key. It is parsed once and
// shared by reference between concurrent requests.
type TrustChain struct {
	intermediate *x509.Certificate
	leaf         *x509.Certificate
	key          crypto.Signer
}

// ParseTrustChain parses PEM encoded certificates and key and checks that
// the key belongs to the leaf certificate.
func ParseTrustChain(intermediatePEM, certificatePEM, privateKeyPEM []byte) (*TrustChain, error) {
	intermediate, err := parseCertificate(intermediatePEM)
	if err != nil {
		return nil, &pass.SignatureError{Op: "parse intermediate certificate", Err: err}
	}

	leaf, err := parseCertificate(certificatePEM)
	if err != nil {
		return nil, &pass.SignatureError{Op: "parse signer certificate", Err: err}
	}

	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, &pass.SignatureError{Op: "parse private key", Err: err}
	}

	return NewTrustChain(intermediate, leaf, key)
}

// NewTrustChain assembles a chain from parsed material.
func NewTrustChain(intermediate, leaf *x509.Certificate, key crypto.Signer) (*TrustChain, error) {
	if intermediate == nil || leaf == nil || key == nil {
		return nil, &pass.SignatureError{Op: "assemble trust chain", Err: errors.New("incomplete trust chain")}
	}

	if !publicKeysEqual(leaf.PublicKey, key.Public()) {
		return nil, &pass.SignatureError{Op: "match private key", Err: errKeyMismatch}
	}

	return &TrustChain{
		intermediate: intermediate,
		leaf:         leaf,
		key:          key,
	}, nil
}

// Intermediate returns the intermediate authority certificate.
func (c *TrustChain) Intermediate() *x509.Certificate {
	return c.intermediate
}

// Leaf returns the signer certificate.
func (c *TrustChain) Leaf() *x509.Certificate {
	return c.leaf
}

// String never renders key material.
func (c *TrustChain) String() string {
	if c == nil || c.leaf == nil {
		return "TrustChain(<nil>)"
	}

	return fmt.Sprintf("TrustChain(signer=%q, issuer=%q, key=<redacted>)",
		c.leaf.Subject.CommonName, c.intermediate.Subject.CommonName)
}

// GoString keeps %#v from dumping the private key.
func (c *TrustChain) GoString() string {
	return c.String()
}

// parseCertificate decodes the first CERTIFICATE block of data.
func parseCertificate(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errNoPEMBlock
	}

	if block.Type != pemTypeCertificate {
		return nil, fmt.Errorf("%w: %s", errUnexpectedPEMType, block.Type)
	}

	certificate, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return certificate, nil
}

// parsePrivateKey decodes PKCS#1, SEC 1 or PKCS#8 keys. Parser errors are
// replaced with generic ones so no key bytes reach a message.
func parsePrivateKey(data []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errNoPEMBlock
	}

	var (
		key any
		err error
	)

	switch block.Type {
	case pemTypePKCS1Key:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case pemTypeECKey:
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case pemTypePKCS8Key:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case pemTypeEncryptedKey:
		return nil, errEncryptedKey
	default:
		return nil, fmt.Errorf("%w: %s", errUnexpectedPEMType, block.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("malformed %s block", block.Type)
	}

	switch typed := key.(type) {
	case *rsa.PrivateKey:
		return typed, nil
	case *ecdsa.PrivateKey:
		return typed, nil
	case ed25519.PrivateKey:
		return typed, nil
	default:
		return nil, errUnsupportedKey
	}
}

// publicKeysEqual compares two public keys of any supported type.
func publicKeysEqual(a, b crypto.PublicKey) bool {
	equaler, ok := a.(interface{ Equal(x crypto.PublicKey) bool })
	if !ok {
		return false
	}

	return equaler.Equal(b)
}
