package packager

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

// Options contains inputs for the pass-builder entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file.
	ConfigPath string
	// Value is the credential value encoded on the pass.
	Value string
	// OutputPath is where the package is written (defaults to mobile-barcode-pass.pkpass).
	OutputPath string
}

// packageFileMode is the permission of written packages.
const packageFileMode = 0o644

// errValueRequired is returned when no credential value is given.
var errValueRequired = errors.New("value must be provided")

// Run builds one pass and writes it to the output path.
func Run(ctx context.Context, opts *Options) error {
	if opts.Value == "" {
		return errValueRequired
	}

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "pass-builder")

	pipeline, err := common.NewBuilder(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialize pipeline: %w", err)
	}

	output := opts.OutputPath
	if output == "" {
		output = pass.PackageFilename
	}

	written, err := writeAtomically(output, func(w io.Writer) error {
		return pipeline.Build(ctx, opts.Value, w)
	})
	if err != nil {
		logger.ErrorKV(ctx, "Pass build failed", "stage", pass.StageOf(err))

		return err
	}

	logger.InfoKV(ctx, "Pass written",
		"path", output,
		"bytes", written,
	)

	return nil
}

// writeAtomically runs write against a temporary file next to path and
// renames it into place. Nothing appears at path when write fails.
func writeAtomically(path string, write func(w io.Writer) error) (int64, error) {
	path = filepath.Clean(path)

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("create temporary file: %w", err)
	}

	tmpName := tmp.Name()

	// Remove the temporary file unless it was renamed.
	committed := false

	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return 0, fmt.Errorf("build pass: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return 0, fmt.Errorf("sync pass: %w", err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat pass: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("close pass: %w", err)
	}

	if err = os.Chmod(tmpName, packageFileMode); err != nil {
		return 0, fmt.Errorf("chmod pass: %w", err)
	}

	if err = os.Rename(tmpName, path); err != nil {
		return 0, fmt.Errorf("rename pass: %w", err)
	}

	committed = true

	return info.Size(), nil
}
