package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	"github.com/bitloom/mobile-barcode-pass/internal/service/common"
)

// Options configures the pass client.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the gRPC address from config when specified.
	ServerAddress string

	// Value is the credential value encoded on the pass.
	Value string

	// OutputPath is the destination file; "-" writes to Stdout.
	OutputPath string

	// Stdout receives the archive when OutputPath is "-".
	Stdout io.Writer
}

// stdoutPath selects standard output as destination.
const stdoutPath = "-"

// outputFileMode is the permission of fetched packages.
const outputFileMode = 0o644

// errValueRequired is returned when no credential value is given.
var errValueRequired = errors.New("value must be provided")

// Run fetches one pass from the server and stores it.
func Run(ctx context.Context, opts *Options) error {
	if opts.Value == "" {
		return errValueRequired
	}

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pass-client")

	// Use server address from options if provided, otherwise use config.
	if opts.ServerAddress != "" {
		cfg.GRPCAddress = opts.ServerAddress
	}

	if err = config.RequireServerAddress(cfg); err != nil {
		return err
	}

	clientOpts := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	// Identify current user and hostname for the server audit log.
	if actor, err := common.DetectActor(); err == nil {
		clientOpts = append(clientOpts, common.WithActor(actor))
	} else {
		logger.WarnKV(ctx, "Actor detection failed", "error", err)
	}

	client, err := common.Dial(ctx, cfg.GRPCAddress, clientOpts...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	logger.InfoKV(ctx, "Requesting pass", "server_address", cfg.GRPCAddress)

	archive, err := client.FetchPass(ctx, opts.Value)
	if err != nil {
		return err
	}

	output := opts.OutputPath
	if output == "" {
		output = pass.PackageFilename
	}

	if output == stdoutPath {
		stdout := opts.Stdout
		if stdout == nil {
			stdout = os.Stdout
		}

		if _, err = stdout.Write(archive); err != nil {
			return fmt.Errorf("write pass: %w", err)
		}

		return nil
	}

	if err = os.WriteFile(filepath.Clean(output), archive, outputFileMode); err != nil {
		return fmt.Errorf("write pass: %w", err)
	}

	logger.InfoKV(ctx, "Pass saved", "path", output, "bytes", len(archive))

	return nil
}
