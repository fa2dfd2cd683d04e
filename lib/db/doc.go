// Package db provides the interface for the backing durable key-value stores used
// underneath the stores of this module.
//
// The package focuses on:
//   - A unified interface for string key-value operations with context support
//   - Feature discovery through capability flags
//   - Standardized metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all engines must satisfy.
//     It provides Get, Set and Delete plus feature discovery, metadata and Close.
//     Unlike the stores in the store package, every KVDB method reports failures
//     as errors. Deciding what to do with a failure is the job of the caller.
//
//   - Feature Flags: The Feature type defines capability flags that engines
//     advertise through SupportsFeature. FeatureDurable separates engines that
//     survive a restart (file, sqlite, postgres) from the in-memory engine.
//
//   - Implementation Identifiers: string constants naming each engine.
//
// Related Packages:
//
// The engines package tree (github.com/ValentinKolb/bKV/lib/db/engines/...)
// contains the implementations:
//   - memory: concurrent in-memory map, not durable
//   - file: one file per key with atomic replace and optional snappy compression
//   - sqlite: single table in an embedded SQLite database (pure Go driver)
//   - postgres: single table in a PostgreSQL database
//
// The rpc/client package provides a KVDB that talks to a remote bKV server.
//
// The testing package (github.com/ValentinKolb/bKV/lib/db/testing) provides the
// conformance suite every engine runs (RunKVDBTests), benchmarks and RecordingDB,
// a fault-injecting wrapper used to test the stores built on top of KVDB.
package db
