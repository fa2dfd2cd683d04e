// Package server implements the bKV RPC server.
//
// A server hosts any number of shards. Every shard has its own engine (a memory
// map, a directory of files, a sqlite file or a postgres table, depending on the
// configured backend) and one of two stores in front of it:
//
//   - dstore: the debounced store. Writes are answered from memory and persisted
//     once the key has been quiet for the debounce window.
//   - lstore: the write-through store. Every write reaches the engine before the
//     request returns.
//
// Requests are decoded by the configured serializer and handed to an
// IRPCServerAdapter, which maps them onto the store. The istore adapter supports
// getItem, setItem, removeItem, flush, pending and info.
//
// Serve blocks until its context is canceled or the process receives SIGINT or
// SIGTERM. On the way out every pending value is flushed and every engine closed,
// so a clean shutdown loses no writes.
//
// The metrics of every dstore shard are registered globally and exposed by the
// http transport under /metrics.
package server
