package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/service/packager"
	"github.com/bitloom/mobile-barcode-pass/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// outputPath is where the package is written.
	outputPath string

	// rootCmd represents the base command for building a pass offline.
	rootCmd = &cobra.Command{
		Use:   "pass-builder [value]",
		Short: "Build one signed mobile barcode pass into a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &packager.Options{
				ConfigPath: configPath,
				Value:      args[0],
				OutputPath: outputPath,
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the pass-builder CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+
		config.DefaultConfigFilename+" when present)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", pass.PackageFilename, "path of the written package")
}
