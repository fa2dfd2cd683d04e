// Package persist saves a typed state value through a store.IStore as one JSON
// document per key, the way a client-side state container persists a slice of
// its state.
//
// The stored value is an envelope holding the state and a version number:
//
//	{"state":{"notes":[...]},"version":0}
//
// On hydration the version is compared with the configured one. A mismatch is
// passed to the Migrate function, or reported as ErrVersionMismatch when none is set.
//
// Save is called after every change of the state. Combined with a debounced store
// (see lib/store/dstore) only the last of a burst of saves is written durably.
package persist
