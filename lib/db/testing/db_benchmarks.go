package testing

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/bKV/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	ctx := context.Background()
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1)
			_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
		}
	})
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	ctx := context.Background()

	// Prepare data
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_ = database.Set(ctx, fmt.Sprintf("test-key-%d", counter%numKeys), fmt.Sprintf("test-value-%d", counter))
			counter++
		}
	})
}

// Benchmark for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	ctx := context.Background()
	largeValue := strings.Repeat("x", 256*1024) // 256KB
	var counter int64

	b.SetBytes(int64(len(largeValue)))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1)
			_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i%64), largeValue)
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	ctx := context.Background()

	// Prepare data
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_, _, _ = database.Get(ctx, fmt.Sprintf("test-key-%d", counter%numKeys))
			counter++
		}
	})
}

// Parallel benchmarking for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	ctx := context.Background()

	numKeys := 10000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare data
	for i := 0; i < numKeys; i++ {
		_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1) % int64(numKeys)
			_ = database.Delete(ctx, fmt.Sprintf("test-key-%d", i))
		}
	})
}

// Mixed read/write load, roughly 80% reads
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	ctx := context.Background()

	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		_ = database.Set(ctx, fmt.Sprintf("test-key-%d", i), fmt.Sprintf("test-value-%d", i))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", r.Intn(numKeys))
			switch op := r.Intn(10); {
			case op < 8:
				_, _, _ = database.Get(ctx, key)
			case op < 9:
				_ = database.Set(ctx, key, "updated")
			default:
				_ = database.Delete(ctx, key)
			}
		}
	})
}
