package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Fully qualified names of the pass service.
const (
	PassServiceName            = "passkit.v1.PassService"
	PassServiceBuildPassMethod = "/passkit.v1.PassService/BuildPass"
)

// PassServiceServer is the server API for PassService.
type PassServiceServer interface {
	// BuildPass streams a signed pass package for the requested value.
	BuildPass(req *wrapperspb.StringValue, stream grpc.ServerStreamingServer[wrapperspb.BytesValue]) error
}

// UnimplementedPassServiceServer answers every call with codes.Unimplemented.
type UnimplementedPassServiceServer struct{}

// BuildPass is not implemented.
func (UnimplementedPassServiceServer) BuildPass(
	*wrapperspb.StringValue,
	grpc.ServerStreamingServer[wrapperspb.BytesValue],
) error {
	return status.Error(codes.Unimplemented, "method BuildPass not implemented")
}

// RegisterPassServiceServer registers srv on s.
func RegisterPassServiceServer(s grpc.ServiceRegistrar, srv PassServiceServer) {
	s.RegisterService(&PassServiceDesc, srv)
}

// passServiceBuildPassHandler decodes the request and hands the stream to srv.
func passServiceBuildPassHandler(srv any, stream grpc.ServerStream) error {
	req := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}

	//nolint:forcetypeassert // HandlerType guarantees the assertion.
	return srv.(PassServiceServer).BuildPass(
		req,
		&grpc.GenericServerStream[wrapperspb.StringValue, wrapperspb.BytesValue]{ServerStream: stream},
	)
}

// PassServiceDesc describes PassService for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package level in grpc.
var PassServiceDesc = grpc.ServiceDesc{
	ServiceName: PassServiceName,
	HandlerType: (*PassServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "BuildPass",
			Handler:       passServiceBuildPassHandler,
			ServerStreams: true,
		},
	},
	Metadata: "passkit/v1/pass.proto",
}

// PassServiceClient is the client API for PassService.
type PassServiceClient interface {
	// BuildPass requests a pass and returns the chunk stream.
	BuildPass(
		ctx context.Context,
		req *wrapperspb.StringValue,
		opts ...grpc.CallOption,
	) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error)
}

// passServiceClient implements PassServiceClient over a connection.
type passServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPassServiceClient creates a client bound to cc.
//
//nolint:ireturn // Mirrors generated gRPC constructors.
func NewPassServiceClient(cc grpc.ClientConnInterface) PassServiceClient {
	return &passServiceClient{cc: cc}
}

// BuildPass sends req and returns the server stream.
//
//nolint:ireturn // Mirrors generated gRPC stream types.
func (c *passServiceClient) BuildPass(
	ctx context.Context,
	req *wrapperspb.StringValue,
	opts ...grpc.CallOption,
) (grpc.ServerStreamingClient[wrapperspb.BytesValue], error) {
	stream, err := c.cc.NewStream(ctx, &PassServiceDesc.Streams[0], PassServiceBuildPassMethod, opts...)
	if err != nil {
		return nil, err
	}

	client := &grpc.GenericClientStream[wrapperspb.StringValue, wrapperspb.BytesValue]{ClientStream: stream}

	if err = client.SendMsg(req); err != nil {
		return nil, err
	}

	if err = client.CloseSend(); err != nil {
		return nil, err
	}

	return client, nil
}
