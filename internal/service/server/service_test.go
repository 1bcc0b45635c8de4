package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/metadata"

	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	"github.com/bitloom/mobile-barcode-pass/internal/service/builder"
	"github.com/bitloom/mobile-barcode-pass/internal/service/common"
)

var errTestPrepare = errors.New("test prepare error")

// recordingPipeline captures the context it is called with.
type recordingPipeline struct {
	// ctx is the context of the last call.
	ctx context.Context //nolint:containedctx // Captured for assertions.
	// err is returned from Prepare.
	err error
}

func (r *recordingPipeline) Prepare(ctx context.Context, _ string) (*builder.Package, error) {
	r.ctx = ctx

	if r.err != nil {
		return nil, r.err
	}

	return new(builder.Package), nil
}

// TestService_Timeout bounds each build by the configured timeout.
func TestService_Timeout(t *testing.T) {
	t.Parallel()

	pipeline := new(recordingPipeline)
	svc := newService(pipeline, time.Minute, "")

	pkg, err := svc.Prepare(context.Background(), "1234567890")
	require.NoError(t, err)
	require.NotNil(t, pkg)

	deadline, ok := pipeline.ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Minute), deadline, time.Second)
}

// TestService_NoTimeout leaves the context alone when no timeout is set.
func TestService_NoTimeout(t *testing.T) {
	t.Parallel()

	pipeline := new(recordingPipeline)

	_, err := newService(pipeline, 0, "").Prepare(context.Background(), "1")
	require.NoError(t, err)

	_, ok := pipeline.ctx.Deadline()
	require.False(t, ok)
}

// TestService_Error passes pipeline failures through unchanged.
func TestService_Error(t *testing.T) {
	t.Parallel()

	_, err := newService(&recordingPipeline{err: errTestPrepare}, time.Second, "").Prepare(context.Background(), "1")
	require.ErrorIs(t, err, errTestPrepare)
}

// TestActorFromContext reads the actor reported by pass-client.
func TestActorFromContext(t *testing.T) {
	t.Parallel()

	require.Empty(t, actorFromContext(context.Background()))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.ActorMetadataKey, "tester@host"))
	require.Equal(t, "tester@host", actorFromContext(ctx))
}

// TestService_RequestLogLevel quiets request loggers and tags them with the actor.
func TestService_RequestLogLevel(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())
	ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(common.ActorMetadataKey, "tester@host"))

	pipeline := new(recordingPipeline)

	_, err := newService(pipeline, time.Second, "warn").Prepare(ctx, "1")
	require.NoError(t, err)

	logger.InfoKV(pipeline.ctx, "dropped")
	logger.WarnKV(pipeline.ctx, "kept")
	logger.InfoKV(ctx, "outside request")

	entries := observed.All()
	require.Len(t, entries, 2)
	require.Equal(t, "kept", entries[0].Message)
	require.Equal(t, "tester@host", entries[0].ContextMap()["actor"])
	require.Equal(t, "outside request", entries[1].Message)
}

// TestService_InheritsLogLevel keeps the server level when none is configured.
func TestService_InheritsLogLevel(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).Sugar())

	pipeline := new(recordingPipeline)

	_, err := newService(pipeline, time.Second, "").Prepare(ctx, "1")
	require.NoError(t, err)

	// Prepare itself logs the request at debug level.
	require.Equal(t, 1, observed.FilterMessage("Pass requested").Len())
}
