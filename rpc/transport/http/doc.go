// Package http implements the rpc transport over HTTP.
//
// The server is a chi router. Requests are POSTed to /{shardId} with a serialized
// message as body. Besides that the server answers GET /healthz and exposes the
// store metrics on GET /metrics in prometheus text format. Canceling the context
// passed to Listen shuts the server down gracefully.
//
// The client spreads requests round-robin over all configured endpoints. A failed
// request is retried RetryCount times, each attempt against the next endpoint.
// The client is safe for concurrent use once Connect returned.
package http
