// Package cmd implements the bkv command line interface.
//
// Subpackages:
//
//   - serve: start a bKV server
//   - kv: talk to a shard of a running server (get, set, rm, flush, pending, info, perf)
//   - notes: a small notes app persisting through a local debounced store
//   - util: flag, config and client helpers shared by the commands
//
// Every flag can also be set through the environment as BKV_<FLAG>, with dashes
// replaced by underscores (e.g. BKV_DEBOUNCE_MS=250). .env and .env.local files in
// the working directory are loaded first.
//
// See bkv -help for a list of all commands.
package cmd
