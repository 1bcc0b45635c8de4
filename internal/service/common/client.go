//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/bitloom/mobile-barcode-pass/internal/config"
	"github.com/bitloom/mobile-barcode-pass/internal/logger"
	pb "github.com/bitloom/mobile-barcode-pass/internal/pb/v1"
	"github.com/bitloom/mobile-barcode-pass/internal/version"
)

const (
	// DefaultMaxRetries is how many times an unavailable server is retried.
	DefaultMaxRetries = 3
	// DefaultRetryInterval is the first backoff delay.
	DefaultRetryInterval = 200 * time.Millisecond
)

// Client wraps the gRPC PassService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the pass server.
	conn *grpc.ClientConn
	// api is the PassService client interface.
	api pb.PassServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	// maxRetries bounds retries on codes.Unavailable.
	maxRetries uint64
	// retryInterval is the initial backoff delay.
	retryInterval time.Duration
	// actor is sent as metadata for the server audit log.
	actor string
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithRetry sets how often and how soon an unavailable server is retried.
func WithRetry(maxRetries uint64, interval time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries

		if interval > 0 {
			c.retryInterval = interval
		}
	}
}

// WithActor sets the actor reported to the server.
func WithActor(actor string) Option {
	return func(c *Client) {
		c.actor = actor
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errValueRequired is returned when no credential value is given.
	errValueRequired = errors.New("value must be provided")
	// errEmptyPass is returned when the stream ends without any data.
	errEmptyPass = errors.New("server returned an empty pass")
)

// Dial establishes a gRPC connection to the pass server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy until native TLS is added.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	// Use the non-context NewClient API recommended by grpc-go
	// (DialContext is deprecated as of grpc-go v1.60+).
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUserAgent(version.UserAgent("pass-client")),
	)
	if err != nil {
		return nil, fmt.Errorf("dial pass server: %w", err)
	}

	client := &Client{
		conn:          conn,
		api:           pb.NewPassServiceClient(conn),
		callTimeout:   config.DefaultTimeout,
		maxRetries:    DefaultMaxRetries,
		retryInterval: DefaultRetryInterval,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// FetchPass requests a pass for value and returns the complete archive.
// Only codes.Unavailable is retried; partial streams are discarded.
func (c *Client) FetchPass(ctx context.Context, value string) ([]byte, error) {
	if value == "" {
		return nil, errValueRequired
	}

	if c.actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, ActorMetadataKey, c.actor)
	}

	var (
		archive []byte
		attempt int
	)

	operation := func() error {
		attempt++

		data, err := c.fetchOnce(ctx, value)
		if err == nil {
			archive = data

			return nil
		}

		if status.Code(err) != codes.Unavailable {
			return backoff.Permanent(err)
		}

		logger.WarnKV(ctx, "Pass server unavailable", "attempt", attempt, "error", err)

		return err
	}

	if err := backoff.Retry(operation, c.retryPolicy(ctx)); err != nil {
		return nil, fmt.Errorf("fetch pass: %w", err)
	}

	return archive, nil
}

// fetchOnce performs a single BuildPass call and buffers the whole stream.
func (c *Client) fetchOnce(ctx context.Context, value string) ([]byte, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	stream, err := c.api.BuildPass(callCtx, wrapperspb.String(value))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, err
		}

		buf.Write(chunk.GetValue())
	}

	if buf.Len() == 0 {
		return nil, errEmptyPass
	}

	return buf.Bytes(), nil
}

// retryPolicy builds the exponential backoff bounded by maxRetries and ctx.
//
//nolint:ireturn // backoff composes policies through its interface.
func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	return backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
