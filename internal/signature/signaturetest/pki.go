// Package signaturetest builds throwaway certificate chains for tests.
package signaturetest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// rsaKeyBits keeps RSA test keys realistic without slowing tests down much.
const rsaKeyBits = 2048

// KeyType selects the algorithm of generated keys.
type KeyType int

// Supported key types.
const (
	ECDSA KeyType = iota
	RSA
)

// Chain is a root, an intermediate ("WWDR") and a leaf pass signer.
type Chain struct {
	Root         *x509.Certificate
	Intermediate *x509.Certificate
	Leaf         *x509.Certificate
	LeafKey      crypto.Signer

	IntermediatePEM []byte
	LeafPEM         []byte
	LeafKeyPEM      []byte
}

// Roots returns a pool holding only the chain's root.
func (c *Chain) Roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(c.Root)

	return pool
}

// NewChain generates a fresh chain with keys of the given type.
func NewChain(t testing.TB, keyType KeyType) *Chain {
	t.Helper()

	rootKey := newKey(t, ECDSA)
	root := issue(t, &x509.Certificate{
		Subject:               pkix.Name{CommonName: "Test Root CA"},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}, nil, rootKey.Public(), rootKey)

	intermediateKey := newKey(t, ECDSA)
	intermediate := issue(t, &x509.Certificate{
		Subject:               pkix.Name{CommonName: "Test Worldwide Developer Relations"},
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}, root, intermediateKey.Public(), rootKey)

	leafKey := newKey(t, keyType)
	leaf := issue(t, &x509.Certificate{
		Subject:     pkix.Name{CommonName: "Pass Type ID: pass.io.bitloom.mobilebarcode"},
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}, intermediate, leafKey.Public(), intermediateKey)

	return &Chain{
		Root:            root,
		Intermediate:    intermediate,
		Leaf:            leaf,
		LeafKey:         leafKey,
		IntermediatePEM: CertificatePEM(intermediate),
		LeafPEM:         CertificatePEM(leaf),
		LeafKeyPEM:      PrivateKeyPEM(t, leafKey),
	}
}

// CertificatePEM encodes a certificate as PEM.
func CertificatePEM(certificate *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certificate.Raw})
}

// PrivateKeyPEM encodes a key as PKCS#8 PEM.
func PrivateKeyPEM(t testing.TB, key crypto.Signer) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// NewKey generates a standalone key, handy for mismatch tests.
func NewKey(t testing.TB, keyType KeyType) crypto.Signer {
	t.Helper()

	return newKey(t, keyType)
}

func newKey(t testing.TB, keyType KeyType) crypto.Signer {
	t.Helper()

	if keyType == RSA {
		key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		require.NoError(t, err)

		return key
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	return key
}

// issue signs template with parentKey. A nil parent self-signs.
func issue(
	t testing.TB,
	template, parent *x509.Certificate,
	publicKey crypto.PublicKey,
	parentKey crypto.Signer,
) *x509.Certificate {
	t.Helper()

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	require.NoError(t, err)

	template.SerialNumber = serial
	template.NotBefore = time.Now().Add(-time.Hour)
	template.NotAfter = time.Now().Add(24 * time.Hour)

	if parent == nil {
		parent = template
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, publicKey, parentKey)
	require.NoError(t, err)

	certificate, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return certificate
}
