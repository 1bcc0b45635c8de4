package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/service/client"
	"github.com/bitloom/mobile-barcode-pass/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the gRPC address from config.
	serverAddress string
	// outputPath is where the package is written; "-" for stdout.
	outputPath string

	// rootCmd represents the base command for fetching a pass.
	rootCmd = &cobra.Command{
		Use:   "pass-client [value]",
		Short: "Fetch a signed mobile barcode pass from a running pass-server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Value:         args[0],
				OutputPath:    outputPath,
				Stdout:        cmd.OutOrStdout(),
			}

			return client.Run(ctx, options)
		},
	}
)

// Execute runs the pass-client CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVarP(&serverAddress, "server", "s", "", "gRPC address of the pass server")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", pass.PackageFilename, `path of the written package, "-" for stdout`)
}
