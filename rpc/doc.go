// Package rpc exposes bKV stores over the network.
//
// Subpackages:
//
//   - common: the Message protocol, server and client configuration, logging setup.
//   - serializer: Message encodings (binary, JSON, gob, each optionally snappy compressed).
//   - transport: the byte level transport interfaces and their HTTP implementation.
//   - server: hosts shards, each a debounced or write-through store over an engine.
//   - client: RPCDB, a db.KVDB backed by a remote shard.
package rpc
