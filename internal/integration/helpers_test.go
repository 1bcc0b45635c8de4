package integration

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/digest"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/service/server"
	"github.com/bitloom/mobile-barcode-pass/internal/signature"
	"github.com/bitloom/mobile-barcode-pass/internal/signature/signaturetest"
)

// reservePort returns a free local TCP address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// writeSettings stores a fresh trust chain and a settings file pointing at it.
func writeSettings(t *testing.T, settings *config.Config) (string, *signaturetest.Chain) {
	t.Helper()

	dir := t.TempDir()
	chain := signaturetest.NewChain(t, signaturetest.ECDSA)

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, config.DefaultFilePermissions))

		return path
	}

	settings.TrustChain = config.TrustChain{
		IntermediateCertificateFile: write("wwdr.pem", chain.IntermediatePEM),
		CertificateFile:             write("signer.pem", chain.LeafPEM),
		PrivateKeyFile:              write("signer.key", chain.LeafKeyPEM),
	}

	cfgPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, settings))

	return cfgPath, chain
}

// startServer runs pass-server with cfgPath until the test ends.
func startServer(t *testing.T, cfgPath string, addrs ...string) {
	t.Helper()

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	for _, addr := range addrs {
		waitForListener(t, addr, done)
	}
}

// waitForListener polls addr until it accepts connections.
func waitForListener(t *testing.T, addr string, done <-chan error) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		select {
		case err := <-done:
			require.FailNow(t, "server exited early", "error: %v", err)
		default:
		}

		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			_ = conn.Close()

			return
		}

		time.Sleep(20 * time.Millisecond)
	}

	require.FailNow(t, "server did not start listening", addr)
}

// requireValidPass opens archive and checks layout, digests and signature.
func requireValidPass(t *testing.T, archive []byte, chain *signaturetest.Chain, value string) {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	contents := make(map[string][]byte, len(zr.File))
	names := make([]string, 0, len(zr.File))

	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)

		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		names = append(names, f.Name)
		contents[f.Name] = content
	}

	require.Len(t, names, 14)
	require.Equal(t, []string{pass.ManifestFilename, pass.SignatureFilename}, names[12:])
	require.NotContains(t, names, "README.md")

	manifest := pass.NewManifest()
	require.NoError(t, manifest.UnmarshalJSON(contents[pass.ManifestFilename]))
	require.Equal(t, names[:12], manifest.Names())

	for _, name := range manifest.Names() {
		want, _ := manifest.Digest(name)
		require.Equal(t, want, digest.Hex(contents[name]), name)
	}

	require.NoError(t, signature.Verify(contents[pass.ManifestFilename], contents[pass.SignatureFilename], chain.Roots()))
	require.Contains(t, string(contents[pass.DescriptorFilename]), `"value":"`+value+`"`)
}
