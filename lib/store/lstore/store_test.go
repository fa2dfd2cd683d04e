package lstore

import (
	"context"
	"testing"

	dbtesting "github.com/ValentinKolb/bKV/lib/db/testing"
)

func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	rec := dbtesting.NewRecordingDB(nil)
	s := NewLocalStore(rec)

	s.SetItem(ctx, "toonnotes-notes", "v1")
	s.SetItem(ctx, "toonnotes-notes", "v2")

	if n := len(rec.Writes("toonnotes-notes")); n != 2 {
		t.Errorf("expected every SetItem to reach the database, got %d writes", n)
	}
	if value, ok := s.GetItem(ctx, "toonnotes-notes"); !ok || value != "v2" {
		t.Errorf("expected v2, got %q (loaded=%v)", value, ok)
	}
	if s.PendingCount() != 0 {
		t.Errorf("write-through store must never have pending writes")
	}
	if results := s.FlushAll(ctx); len(results) != 0 {
		t.Errorf("expected no flush results, got %v", results)
	}

	s.RemoveItem(ctx, "toonnotes-notes")
	if _, ok := s.GetItem(ctx, "toonnotes-notes"); ok {
		t.Errorf("expected key to be gone after RemoveItem")
	}
}

func TestBackendErrors(t *testing.T) {
	ctx := context.Background()
	rec := dbtesting.NewRecordingDB(nil)
	s := NewLocalStore(rec)

	s.SetItem(ctx, "k", "v")
	rec.FailAll(true)

	// errors are logged, never surfaced
	s.SetItem(ctx, "k", "other")
	s.RemoveItem(ctx, "k")
	if _, ok := s.GetItem(ctx, "k"); ok {
		t.Errorf("a failed read must degrade to not found")
	}

	rec.FailAll(false)
	if value, ok := s.GetItem(ctx, "k"); !ok || value != "v" {
		t.Errorf("failed writes must not change the stored value, got %q (loaded=%v)", value, ok)
	}
}
