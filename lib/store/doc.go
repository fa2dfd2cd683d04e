// Package store provides the string key-value storage interface that document stores
// persist through, together with the typed results of durable operations and a unified
// error type. It serves as an abstraction layer over the lower-level db.KVDB engines.
//
// The package focuses on:
//   - A minimal interface (IStore) with GetItem, SetItem and RemoveItem
//   - An optional interface (IFlusher) for stores that buffer writes
//   - Pluggable storage backends through the DBFactory pattern
//
// Key Components:
//
//   - IStore Interface: The contract every store satisfies. The methods never return
//     errors. A backend failure is logged by the store and a failed read looks like a
//     missing key, so callers treat the store as a best-effort persistence layer.
//
//   - IFlusher Interface: Stores that hold writes back expose FlushAll, which persists
//     everything pending and returns one FlushResult per key, and PendingCount.
//
//   - FlushResult: The outcome of one durable operation (key, version, trigger,
//     error and duration). Failures that IStore cannot return surface here.
//
//   - Error System: A structured error using typed return codes. Errors from the
//     engines are wrapped with RetCBackendError and remain reachable via errors.Is/As.
//
// Implementations:
//
//	- Debounced Store (dstore): Coalesces bursts of writes per key in an in-memory
//	  ledger and forwards only the last value once the key has been quiet for the
//	  debounce window. Reads see pending values immediately.
//	  Available in the "github.com/ValentinKolb/bKV/lib/store/dstore" package.
//
//	- Local Store (lstore): A write-through implementation that forwards every call
//	  to the engine directly. Used where every write must be durable at once.
//	  Available in the "github.com/ValentinKolb/bKV/lib/store/lstore" package.
package store
