package file

import (
	"context"
	"os"
	"testing"

	"github.com/ValentinKolb/bKV/lib/db"
	dbtesting "github.com/ValentinKolb/bKV/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "FileDB", func() db.KVDB {
		database, err := NewFileDB(&DBOptions{Dir: t.TempDir()})
		if err != nil {
			t.Fatalf("failed to create file db: %v", err)
		}
		return database
	})

	dbtesting.RunKVDBTests(t, "FileDB(snappy)", func() db.KVDB {
		database, err := NewFileDB(&DBOptions{Dir: t.TempDir(), Compress: true})
		if err != nil {
			t.Fatalf("failed to create file db: %v", err)
		}
		return database
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "FileDB", func() db.KVDB {
		database, err := NewFileDB(&DBOptions{Dir: b.TempDir()})
		if err != nil {
			b.Fatalf("failed to create file db: %v", err)
		}
		return database
	})
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileDB(&DBOptions{Dir: dir, Compress: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set(ctx, "toonnotes-notes", `{"state":{"notes":[]},"version":0}`); err != nil {
		t.Fatal(err)
	}
	_ = first.Close()

	// a reader without compression still decodes compressed files
	second, err := NewFileDB(&DBOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	value, ok, err := second.Get(ctx, "toonnotes-notes")
	if err != nil || !ok {
		t.Fatalf("expected value after reopen, got ok=%v err=%v", ok, err)
	}
	if value != `{"state":{"notes":[]},"version":0}` {
		t.Errorf("unexpected value after reopen: %s", value)
	}

	if !second.SupportsFeature(db.FeatureDurable) {
		t.Errorf("file db must report FeatureDurable")
	}
	if second.SupportsFeature(db.FeatureCompression) {
		t.Errorf("uncompressed file db must not report FeatureCompression")
	}
}

func TestHashCollision(t *testing.T) {
	ctx := context.Background()
	database, err := NewFileDB(&DBOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	impl := database.(*fileImpl)

	// simulate a collision: the file for "a" holds the key "b"
	if err := os.WriteFile(impl.path("a"), impl.encode("b", "value-of-b"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok, err := database.Get(ctx, "a"); err != nil || ok {
		t.Errorf("expected colliding key to be reported as missing, got ok=%v err=%v", ok, err)
	}
	if err := database.Set(ctx, "a", "value-of-a"); err == nil {
		t.Errorf("expected an error when overwriting a colliding key")
	}
	if err := database.Delete(ctx, "a"); err != nil {
		t.Errorf("delete of colliding key should be a no-op, got %v", err)
	}
	if _, err := os.Stat(impl.path("a")); err != nil {
		t.Errorf("delete of colliding key must not remove the other key's file: %v", err)
	}
}

func TestCorruptFile(t *testing.T) {
	ctx := context.Background()
	database, err := NewFileDB(&DBOptions{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	impl := database.(*fileImpl)

	if err := os.WriteFile(impl.path("broken"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := database.Get(ctx, "broken"); err == nil {
		t.Errorf("expected an error for a corrupt file")
	}
}
