// Package transport defines how rpc requests travel between client and server.
//
// A request is an opaque byte slice (a serialized common.Message) addressed to a
// shard id. The server transport hands it to a ServerHandleFunc, the client
// transport returns whatever the handler produced. Serialization is not the
// transport's concern.
//
// The http sub package contains the only implementation.
package transport
