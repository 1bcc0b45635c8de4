package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	grpcapi "github.com/bitloom/mobile-barcode-pass/internal/api/grpc/pass"
	httpapi "github.com/bitloom/mobile-barcode-pass/internal/api/http/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	pb "github.com/bitloom/mobile-barcode-pass/internal/pb/v1"
	"github.com/bitloom/mobile-barcode-pass/internal/service/common"
	"github.com/bitloom/mobile-barcode-pass/internal/version"
)

// Options controls the pass-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPAddress overrides the HTTP listen address.
	HTTPAddress string
	// GRPCAddress overrides the gRPC listen address.
	GRPCAddress string
}

const (
	// readHeaderTimeout bounds how long a client may take to send headers.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds graceful HTTP shutdown.
	shutdownTimeout = 15 * time.Second
	// serverName is used in logs and the Server header.
	serverName = "pass-server"
)

// Run starts the HTTP and gRPC listeners and blocks until the context is
// canceled or a listener fails. The trust chain and template are loaded
// before any listener opens, so bad material stops the process early.
func Run(ctx context.Context, opts *Options) error {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// CLI arguments override the file.
	if opts.HTTPAddress != "" {
		settings.HTTPAddress = opts.HTTPAddress
	}

	if opts.GRPCAddress != "" {
		settings.GRPCAddress = opts.GRPCAddress
	}

	if err = config.Validate(settings); err != nil {
		return err
	}

	if err = config.RequireListener(settings); err != nil {
		return err
	}

	if err = logger.Configure(settings.LogLevel, settings.LogFormat); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, serverName)

	pipeline, err := common.NewBuilder(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise pipeline: %w", err)
	}

	svc := newService(pipeline, settings.Timeout, settings.RequestLogLevel)

	httpLis, grpcLis, err := listenAll(ctx, settings)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if httpLis != nil {
		group.Go(func() error {
			return serveHTTP(groupCtx, httpLis, settings, svc)
		})
	}

	if grpcLis != nil {
		group.Go(func() error {
			return serveGRPC(groupCtx, grpcLis, svc)
		})
	}

	if err = group.Wait(); err != nil {
		return err
	}

	logger.Info(ctx, "Pass server stopped")

	return nil
}

// listenAll opens every configured listener, or none of them.
func listenAll(ctx context.Context, settings *config.Config) (httpLis, grpcLis net.Listener, err error) {
	if settings.HTTPAddress != "" {
		if httpLis, err = listen(ctx, settings.HTTPAddress); err != nil {
			return nil, nil, err
		}
	}

	if settings.GRPCAddress != "" {
		if grpcLis, err = listen(ctx, settings.GRPCAddress); err != nil {
			if httpLis != nil {
				_ = httpLis.Close()
			}

			return nil, nil, err
		}
	}

	return httpLis, grpcLis, nil
}

// listen opens a TCP listener on address.
func listen(ctx context.Context, address string) (net.Listener, error) {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", address, err)
	}

	return lis, nil
}

// serveHTTP runs the HTTP endpoint until ctx is done.
func serveHTTP(ctx context.Context, lis net.Listener, settings *config.Config, svc *service) error {
	handler := httpapi.NewHandler(svc,
		httpapi.WithAllowedOrigins(settings.AllowedOrigins),
		httpapi.WithServerHeader(version.UserAgent(serverName)),
	)

	//nolint:exhaustruct // Remaining fields keep net/http defaults.
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		// Requests keep running through graceful shutdown.
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	logger.InfoKV(ctx, "HTTP server listening", "listen_address", lis.Addr().String())

	// Done channel is closed after Shutdown finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()
		logger.Info(ctx, "Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorKV(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	<-done
	logger.Info(ctx, "HTTP server stopped")

	return nil
}

// serveGRPC runs the gRPC endpoint until ctx is done.
func serveGRPC(ctx context.Context, lis net.Listener, svc *service) error {
	grpcServer := grpc.NewServer()
	pb.RegisterPassServiceServer(grpcServer, grpcapi.NewServer(svc))

	logger.InfoKV(ctx, "gRPC server listening", "listen_address", lis.Addr().String())

	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
