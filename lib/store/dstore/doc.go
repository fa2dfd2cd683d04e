// Package dstore implements a debounced key-value store on top of any db.KVDB.
// It satisfies store.IStore and store.IFlusher and is meant for callers that rewrite
// the same key on every state change, such as a notes collection serialized as one
// JSON document.
//
// Architecture:
//
// The dstore implementation consists of three main components:
//
//   - Pending-Write Ledger: Defined in the internal package, it maps every key with
//     an unpersisted value to that value, a version and the scheduled commit.
//
//   - Store: SetItem replaces the ledger entry and (re)arms the commit for the key,
//     GetItem answers from the ledger before falling through to the database and
//     RemoveItem drops the entry and deletes the key durably.
//
//   - Flush Controller: FlushAll commits every ledger entry at once, PendingCount
//     reports the size of the ledger.
//
// Debounce Model:
//
//	Each SetItem restarts the debounce window of its key. Only when a key has been
//	quiet for the whole window is its last value written. Intermediate values are
//	never written. Different keys are independent of each other.
//
// Ordering:
//
//	Every ledger entry carries a version from a counter that never repeats. A commit
//	writes only if the entry still carries the version it was scheduled for and removes
//	the entry afterwards only under the same condition, so a SetItem during an
//	in-flight write stays pending with its own timer.
//
//	Durable operations on one key never overlap. A commit or a remove waits for the
//	previous operation on the key, so a late write can not land after a newer write
//	or after a delete.
//
//	Concurrent reads of a key that is not pending share one database call
//	(golang.org/x/sync/singleflight).
//
// Error Handling:
//
//	No method returns an error. A failed read is logged and reported as not found.
//	A failed write is logged, dropped from the ledger and not retried. Every durable
//	operation produces a store.FlushResult that is passed to Options.OnResult and,
//	for FlushAll, returned to the caller.
//
// Environment Guard:
//
//	Options.Available reports whether persistent storage exists. While it returns false
//	SetItem and RemoveItem do nothing and GetItem finds nothing.
//
// Scheduling:
//
//	Commits are scheduled through the Scheduler interface. NewTimerScheduler uses
//	time.AfterFunc; NewManualScheduler runs on a virtual clock advanced by the caller.
//
// Metrics:
//
//	Every store registers counters, a pending gauge and a write duration histogram
//	labelled with Options.Name in Options.Metrics (github.com/VictoriaMetrics/metrics).
//	Two stores sharing one metrics set need different names.
//
// Usage Example:
//
//	database, _ := file.NewFileDB(&file.DBOptions{Dir: "data"})
//	s := dstore.NewDebouncedStore(database, &dstore.Options{Debounce: 500 * time.Millisecond})
//	defer s.Close(ctx)
//
//	s.SetItem(ctx, "toonnotes-notes", snapshot)
//	value, _ := s.GetItem(ctx, "toonnotes-notes") // the pending snapshot
package dstore
