package integration

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/service/client"
	"github.com/bitloom/mobile-barcode-pass/internal/service/common"
	"github.com/bitloom/mobile-barcode-pass/internal/service/packager"
	"github.com/bitloom/mobile-barcode-pass/internal/service/server"
)

// postPass sends a pass request to the HTTP endpoint.
func postPass(t *testing.T, addr, body string) (*http.Response, []byte) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"http://"+addr+"/api/mobile-barcode-passes", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

// TestHTTP_IssuesPass starts the real server and downloads a verifiable pass.
func TestHTTP_IssuesPass(t *testing.T) {
	t.Parallel()

	httpAddr := reservePort(t)
	cfgPath, chain := writeSettings(t, &config.Config{
		HTTPAddress:     httpAddr,
		VerifySignature: true,
	})

	startServer(t, cfgPath, httpAddr)

	resp, body := postPass(t, httpAddr, `{"mobile_barcode":"1234567890"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "mobile-barcode-pass.pkpass")
	require.Contains(t, resp.Header.Get("Server"), "pass-server/")

	requireValidPass(t, body, chain, "1234567890")

	// Malformed value: generic error and no archive.
	resp, body = postPass(t, httpAddr, `{"mobile_barcode":"abc"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.JSONEq(t, `{"error":"Internal Server Error"}`, string(body))
}

// TestGRPC_FetchPass fetches a pass through the gRPC client.
func TestGRPC_FetchPass(t *testing.T) {
	t.Parallel()

	grpcAddr := reservePort(t)
	cfgPath, chain := writeSettings(t, &config.Config{
		GRPCAddress: grpcAddr,
	})

	startServer(t, cfgPath, grpcAddr)

	ctx := context.Background()

	c, err := common.Dial(ctx, grpcAddr, common.WithCallTimeout(10*time.Second), common.WithActor("tester@host"))
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	archive, err := c.FetchPass(ctx, "CARD-42")
	require.NoError(t, err)

	requireValidPass(t, archive, chain, "CARD-42")
}

// TestCommands_ClientAndBuilder runs pass-client against the server and pass-builder offline.
func TestCommands_ClientAndBuilder(t *testing.T) {
	t.Parallel()

	httpAddr, grpcAddr := reservePort(t), reservePort(t)
	cfgPath, chain := writeSettings(t, &config.Config{
		HTTPAddress: httpAddr,
		GRPCAddress: grpcAddr,
	})

	startServer(t, cfgPath, httpAddr, grpcAddr)

	dir := t.TempDir()
	fetched := filepath.Join(dir, "fetched.pkpass")

	err := client.Run(context.Background(), &client.Options{
		ConfigPath: cfgPath,
		Value:      "1234567890",
		OutputPath: fetched,
	})
	require.NoError(t, err)

	archive, err := os.ReadFile(fetched)
	require.NoError(t, err)
	requireValidPass(t, archive, chain, "1234567890")

	built := filepath.Join(dir, "built.pkpass")

	err = packager.Run(context.Background(), &packager.Options{
		ConfigPath: cfgPath,
		Value:      "1234567890",
		OutputPath: built,
	})
	require.NoError(t, err)

	archive, err = os.ReadFile(built)
	require.NoError(t, err)
	requireValidPass(t, archive, chain, "1234567890")
}

// TestServer_RejectsBadTrustChain exits before listening when the key does not match.
func TestServer_RejectsBadTrustChain(t *testing.T) {
	t.Parallel()

	httpAddr := reservePort(t)
	settings := &config.Config{HTTPAddress: httpAddr}
	cfgPath, _ := writeSettings(t, settings)

	// Replace the key with one from an unrelated chain.
	other, _ := writeSettings(t, &config.Config{HTTPAddress: httpAddr})
	otherSettings, err := config.Load(other)
	require.NoError(t, err)

	key, err := os.ReadFile(otherSettings.TrustChain.PrivateKeyFile)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(settings.TrustChain.PrivateKeyFile, key, config.DefaultFilePermissions))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "PRIVATE KEY")
}

// TestServer_RequiresListener refuses to start without addresses.
func TestServer_RequiresListener(t *testing.T) {
	t.Parallel()

	cfgPath, _ := writeSettings(t, new(config.Config))

	err := server.Run(context.Background(), &server.Options{ConfigPath: cfgPath})
	require.Error(t, err)
}
