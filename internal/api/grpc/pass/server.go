package pass

import (
	"bufio"
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/bitloom/mobile-barcode-pass/internal/domain/pass"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	pb "github.com/bitloom/mobile-barcode-pass/internal/pb/v1"
	"github.com/bitloom/mobile-barcode-pass/internal/service/builder"
)

// ChunkSize is the largest payload of one streamed message.
const ChunkSize = 32 << 10

// Service abstracts the pipeline the transport depends on.
type Service interface {
	Prepare(ctx context.Context, value string) (*builder.Package, error)
}

// Server implements the PassService gRPC API.
type Server struct {
	pb.UnimplementedPassServiceServer

	// service builds packages.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// BuildPass streams a signed package for the requested value.
func (s *Server) BuildPass(req *wrapperspb.StringValue, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error {
	if req == nil || req.GetValue() == "" {
		return status.Error(codes.InvalidArgument, "value is required")
	}

	ctx := logger.WithFields(stream.Context(), zap.String("request_id", uuid.NewString()))
	started := time.Now()

	pkg, err := s.service.Prepare(ctx, req.GetValue())
	if err != nil {
		if code := status.FromContextError(ctx.Err()).Code(); code != codes.OK {
			return status.Error(code, "request ended before the pass was built")
		}

		logger.ErrorKV(ctx, "Pass build failed", "stage", domain.StageOf(err), "error", err)

		return status.Error(codes.Internal, "unable to build pass")
	}

	sink := bufio.NewWriterSize(&chunkWriter{stream: stream}, ChunkSize)

	written, err := pkg.WriteTo(sink)
	if err == nil {
		err = sink.Flush()
	}

	if err != nil {
		logger.ErrorKV(ctx, "Pass stream interrupted", "written", written, "error", err)

		return status.Error(codes.Unavailable, "pass stream interrupted")
	}

	logger.InfoKV(ctx, "Pass issued", "bytes", written, "elapsed", time.Since(started))

	return nil
}

// chunkWriter sends every write as one message.
type chunkWriter struct {
	stream grpc.ServerStreamingServer[wrapperspb.BytesValue]
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	var written int

	for written < len(p) {
		n := min(len(p)-written, ChunkSize)

		// Send marshals synchronously, so p may be reused afterwards.
		if err := w.stream.Send(wrapperspb.Bytes(p[written : written+n])); err != nil {
			return written, err
		}

		written += n
	}

	return written, nil
}
