// Package internal provides the pending-write ledger of the dstore package.
//
// The ledger maps a key to the last value written for it that has not reached the
// durable store yet, together with a version and the scheduled commit task.
// Versions are taken from one counter per ledger and never repeat, so a commit
// can tell whether the entry it was scheduled for has since been replaced.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// Thread Safety:
//
//	The ledger is not thread-safe. The store serializes every access with its own mutex.
package internal
