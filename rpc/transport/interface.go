package transport

import (
	"context"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a shardId and a request as parameters and returns a response.
// ctx is canceled when the client goes away.
type ServerHandleFunc func(ctx context.Context, shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// The transport layer is responsible for routing the request to the appropriate shard
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until ctx is canceled or the listener fails.
	// On cancellation in-flight requests are allowed to finish before Listen returns.
	Listen(ctx context.Context, config common.ServerConfig) error
}

// IRPCMetricsTransport is implemented by server transports that export metrics.
// The server registers the metric set of every shard that has one.
type IRPCMetricsTransport interface {
	RegisterMetricSet(set *metrics.Set)
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(ctx context.Context, shardId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
