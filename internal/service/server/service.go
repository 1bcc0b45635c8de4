package server

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/metadata"

	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	"github.com/bitloom/mobile-barcode-pass/internal/service/builder"
	"github.com/bitloom/mobile-barcode-pass/internal/service/common"
)

// preparer is the pipeline the service delegates to.
type preparer interface {
	Prepare(ctx context.Context, value string) (*builder.Package, error)
}

// service applies the per-request policy shared by both transports.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// pipeline builds the package.
	pipeline preparer
	// timeout bounds a single build.
	timeout time.Duration
	// requestLevel overrides the level of per-request loggers when set.
	requestLevel *zapcore.Level
}

// newService wraps pipeline with a per-request timeout. A non-empty
// requestLevel names the zap level used while serving a request.
func newService(pipeline preparer, timeout time.Duration, requestLevel string) *service {
	svc := &service{
		pipeline: pipeline,
		timeout:  timeout,
	}

	if lvl, ok := logger.ParseLogLevel(requestLevel); ok {
		svc.requestLevel = &lvl
	}

	return svc
}

// Prepare builds a package for value within the request timeout.
func (s *service) Prepare(ctx context.Context, value string) (*builder.Package, error) {
	if s.requestLevel != nil {
		ctx = logger.WithLogLevel(ctx, *s.requestLevel)
	}

	if actor := actorFromContext(ctx); actor != "" {
		ctx = logger.WithFields(ctx, zap.String("actor", actor))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	logger.DebugKV(ctx, "Pass requested", "value_length", len(value))

	return s.pipeline.Prepare(ctx, value)
}

// actorFromContext extracts the client-reported actor from gRPC metadata.
func actorFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	return strings.Join(md.Get(common.ActorMetadataKey), ",")
}
