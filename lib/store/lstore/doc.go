// Package lstore implements a write-through key-value store based on the
// store.IStore interface. It is a thin wrapper around any db.KVDB
// implementation: every GetItem, SetItem and RemoveItem goes straight to the database.
//
// Key Features:
//   - No buffering, a write is durable once SetItem returns (as far as the engine allows)
//   - Feature detection to handle unsupported operations gracefully
//   - Failures are logged and never returned, matching the store.IStore contract
//
// The store also satisfies store.IFlusher so it can be used wherever a debounced
// store is expected. FlushAll returns no results and PendingCount is always zero.
//
// Usage Example:
//
//	database, _ := sqlite.NewSQLiteDB("data/notes.db")
//	s := lstore.NewLocalStore(database)
//
//	s.SetItem(ctx, "toonnotes-notes", snapshot)
//	value, exists := s.GetItem(ctx, "toonnotes-notes")
//
// For bursty callers that rewrite the same key on every mutation, use the dstore
// package instead, which coalesces the writes.
package lstore
