package testing

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/bKV/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("DeleteAbsent", func(t *testing.T) {
			testDeleteAbsent(t, factory())
		})

		t.Run("EmptyValue", func(t *testing.T) {
			testEmptyValue(t, factory())
		})

		t.Run("LargeValue", func(t *testing.T) {
			testLargeValue(t, factory())
		})

		t.Run("UnicodeKeys", func(t *testing.T) {
			testUnicodeKeys(t, factory())
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory())
		})

		t.Run("CanceledContext", func(t *testing.T) {
			testCanceledContext(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, key, value string) {
	t.Helper()
	if err := database.Set(context.Background(), key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, database db.KVDB, key string) (string, bool) {
	t.Helper()
	value, ok, err := database.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	mustSet(t, database, "test-key", "test-value")

	value, ok := mustGet(t, database, "test-key")
	if !ok {
		t.Fatalf("Expected key test-key to exist after Set")
	}
	if value != "test-value" {
		t.Errorf("Expected value test-value, got %s", value)
	}

	if _, ok := mustGet(t, database, "nonexistent-key"); ok {
		t.Errorf("Expected nonexistent key to return loaded=false")
	}
}

func testOverwrite(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	for i := 0; i < 10; i++ {
		mustSet(t, database, "key", fmt.Sprintf("value-%d", i))
	}

	value, ok := mustGet(t, database, "key")
	if !ok || value != "value-9" {
		t.Errorf("Expected last written value value-9, got %q (loaded=%v)", value, ok)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	mustSet(t, database, "delete-me", "value")
	mustSet(t, database, "keep-me", "value")

	if err := database.Delete(context.Background(), "delete-me"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok := mustGet(t, database, "delete-me"); ok {
		t.Errorf("Expected key delete-me to be gone after Delete")
	}
	if _, ok := mustGet(t, database, "keep-me"); !ok {
		t.Errorf("Expected key keep-me to be unaffected by Delete")
	}

	// a deleted key can be written again
	mustSet(t, database, "delete-me", "again")
	if value, _ := mustGet(t, database, "delete-me"); value != "again" {
		t.Errorf("Expected value again after re-set, got %q", value)
	}
}

func testDeleteAbsent(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureDelete)

	if err := database.Delete(context.Background(), "never-written"); err != nil {
		t.Errorf("Deleting an absent key must not fail, got %v", err)
	}
}

func testEmptyValue(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	mustSet(t, database, "empty", "")

	value, ok := mustGet(t, database, "empty")
	if !ok {
		t.Errorf("Expected empty value to be stored as present")
	}
	if value != "" {
		t.Errorf("Expected empty value, got %q", value)
	}
}

func testLargeValue(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	// roughly the size of a notes snapshot with a few hundred notes
	large := strings.Repeat(`{"id":"n","title":"Title","content":"Lorem ipsum dolor sit amet"},`, 16*1024)
	mustSet(t, database, "large", large)

	value, ok := mustGet(t, database, "large")
	if !ok || value != large {
		t.Errorf("Large value did not round-trip (loaded=%v, len=%d, want len=%d)", ok, len(value), len(large))
	}
}

func testUnicodeKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	keys := []string{"toonnotes-notes", "ключ", "キー", "emoji-🙂", "with space", "with/slash", "a:b:c"}
	for i, key := range keys {
		mustSet(t, database, key, fmt.Sprintf("value-%d", i))
	}
	for i, key := range keys {
		value, ok := mustGet(t, database, key)
		if !ok || value != fmt.Sprintf("value-%d", i) {
			t.Errorf("Key %q: expected value-%d, got %q (loaded=%v)", key, i, value, ok)
		}
	}
}

func testConcurrentWriters(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	const (
		writers = 8
		perKey  = 25
	)

	var wg sync.WaitGroup
	errs := make(chan error, writers*perKey)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perKey; i++ {
				key := fmt.Sprintf("writer-%d", w)
				if err := database.Set(context.Background(), key, fmt.Sprintf("%d", i)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Set failed: %v", err)
	}

	for w := 0; w < writers; w++ {
		key := fmt.Sprintf("writer-%d", w)
		value, ok := mustGet(t, database, key)
		if !ok || value != fmt.Sprintf("%d", perKey-1) {
			t.Errorf("Key %s: expected %d, got %q (loaded=%v)", key, perKey-1, value, ok)
		}
	}
}

func testCanceledContext(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := database.Set(ctx, "canceled", "value"); err == nil {
		t.Errorf("Expected Set with a canceled context to fail")
	}

	if _, ok := mustGet(t, database, "canceled"); ok {
		t.Errorf("Expected Set with a canceled context to have no effect")
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	mustSet(t, database, "info-key", "info-value")

	info := database.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected GetInfo to report a database type")
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size after a write, got %d", info.SizeBytes)
	}
	for _, feature := range info.SupportedFeatures {
		if !database.SupportsFeature(feature) {
			t.Errorf("GetInfo lists %s but SupportsFeature denies it", feature)
		}
	}
}
