// Package testing provides standardised tests and benchmarks for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - testing: A conformance suite validating the KVDB contract (read-your-write,
//     overwrite, delete of absent keys, empty and large values, concurrent writers,
//     context cancellation and metadata)
//   - benchmark: Performance tests for measuring throughput of common database operations
//   - RecordingDB: A KVDB wrapper that records every write and can inject failures
//     or hold writes back, used by the store tests to observe durable writes
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() db.KVDB {
//		return NewMyDatabase()
//	}
//
//	// Running the standard test suite
//	dbtesting.RunKVDBTests(t, "MyDatabase", factory)
//
//	// Running performance benchmarks
//	dbtesting.RunKVDBBenchmarks(b, "MyDatabase", factory)
package testing
