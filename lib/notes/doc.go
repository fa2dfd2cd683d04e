// Package notes implements the notes and labels collections of a note-taking app
// as document stores: every collection is one JSON document saved through a
// store.IStore (see lib/persist) after each change.
//
// Notes support soft deletion to a trash (Delete, Restore, PurgeTrash), permanent
// removal (Purge), archiving and pinning. Labels are identified by their normalized
// (lower-cased, trimmed) name.
//
// The collections call SetItem on every mutation. Backed by a debounced store
// (lib/store/dstore) a burst of edits results in a single durable write.
package notes
