package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/service/server"
	"github.com/bitloom/mobile-barcode-pass/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// httpAddress overrides the HTTP listen address.
	httpAddress string
	// grpcAddress overrides the gRPC listen address.
	grpcAddress string

	// rootCmd represents the base command for running the pass server.
	rootCmd = &cobra.Command{
		Use:   "pass-server",
		Short: "Issue signed mobile barcode passes over HTTP and gRPC.",
		Long: `Starts the pass server that renders a Code 39 barcode for each requested value,
signs the pass manifest with the configured trust chain and streams the .pkpass archive.

HTTP: POST /api/mobile-barcode-passes with {"mobile_barcode": "<value>"}.
gRPC: passkit.v1.PassService/BuildPass.

Settings come from the configuration file and MBP_PORT, MBP_APPLE_WWDR_CERTIFICATE,
MBP_CERTIFICATE and MBP_PRIVATE_KEY environment variables. A missing or malformed
trust chain stops the server before it listens.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &server.Options{
				ConfigPath:  configPath,
				HTTPAddress: httpAddress,
				GRPCAddress: grpcAddress,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the pass-server CLI and exits with non-zero status on error.
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
	rootCmd.Flags().StringVar(&httpAddress, "http-addr", "", "HTTP listen address, e.g. :8080")
	rootCmd.Flags().StringVar(&grpcAddress, "grpc-addr", "", "gRPC listen address, e.g. :9090")
}
