package notes

import (
	"context"
	"testing"
	"time"

	dbtesting "github.com/ValentinKolb/bKV/lib/db/testing"
	"github.com/ValentinKolb/bKV/lib/store/dstore"
	"github.com/ValentinKolb/bKV/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) tick() { c.t = c.t.Add(time.Second) }

func newClock() *clock {
	return &clock{t: time.UnixMilli(1_700_000_000_000)}
}

func TestNotesLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	n, err := Open(ctx, lstore.NewLocalStore(dbtesting.NewRecordingDB(nil)), &Options{Now: c.now})
	require.NoError(t, err)

	first, err := n.Add(ctx, "  Groceries ", "milk, eggs", []string{"Home", "home ", ""})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", first.Title)
	assert.Equal(t, []string{"home"}, first.Labels)
	assert.NotEmpty(t, first.ID)

	c.tick()
	second, err := n.Add(ctx, "Ideas", "a comic about cats", []string{"work"})
	require.NoError(t, err)

	c.tick()
	_, err = n.TogglePin(ctx, first.ID)
	require.NoError(t, err)

	active := n.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID, "pinned notes come first")

	c.tick()
	title := "Ideas v2"
	updated, err := n.Update(ctx, second.ID, Update{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Ideas v2", updated.Title)
	assert.Equal(t, c.t.UnixMilli(), updated.UpdatedAt)

	deleted, err := n.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.False(t, deleted.IsPinned, "deleting unpins")
	assert.Equal(t, c.t.UnixMilli(), deleted.DeletedAt)
	assert.Len(t, n.Deleted(), 1)
	assert.Len(t, n.Active(), 1)

	restored, err := n.Restore(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Zero(t, restored.DeletedAt)

	archived, err := n.Archive(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.Len(t, n.Archived(), 1)
	_, err = n.Unarchive(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, n.Archived())

	require.NoError(t, n.Purge(ctx, first.ID))
	assert.Equal(t, 1, n.Len())

	_, err = n.Get(first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, n.Purge(ctx, "missing"), ErrNotFound)
	_, err = n.TogglePin(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	n, err := Open(ctx, lstore.NewLocalStore(dbtesting.NewRecordingDB(nil)), nil)
	require.NoError(t, err)

	cats, _ := n.Add(ctx, "Cats", "A Comic strip", []string{"work"})
	dogs, _ := n.Add(ctx, "Dogs", "walk at noon", nil)
	hidden, _ := n.Add(ctx, "Comic archive", "", nil)
	_, _ = n.Archive(ctx, hidden.ID)

	found := n.Search("  comic ")
	require.Len(t, found, 1)
	assert.Equal(t, cats.ID, found[0].ID)

	assert.Len(t, n.Search(""), 2, "empty query returns the active notes")
	assert.Empty(t, n.Search("nothing"))

	byLabel := n.ByLabel("WORK")
	require.Len(t, byLabel, 1)
	assert.Equal(t, cats.ID, byLabel[0].ID)
	assert.NotEqual(t, dogs.ID, byLabel[0].ID)
}

func TestPurgeTrash(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	n, err := Open(ctx, lstore.NewLocalStore(dbtesting.NewRecordingDB(nil)), &Options{Now: c.now})
	require.NoError(t, err)

	old, _ := n.Add(ctx, "old", "", nil)
	_, _ = n.Delete(ctx, old.ID)

	c.t = c.t.Add(TrashRetention)
	recent, _ := n.Add(ctx, "recent", "", nil)
	_, _ = n.Delete(ctx, recent.ID)

	removed, err := n.PurgeTrash(ctx, TrashRetention)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	deleted := n.Deleted()
	require.Len(t, deleted, 1)
	assert.Equal(t, recent.ID, deleted[0].ID)
}

func TestPersistsThroughDebouncedStore(t *testing.T) {
	ctx := context.Background()
	rec := dbtesting.NewRecordingDB(nil)
	sched := dstore.NewManualScheduler()
	s := dstore.NewDebouncedStore(rec, &dstore.Options{Scheduler: sched, Name: "notes-test"})
	defer s.Close(ctx)

	n, err := Open(ctx, s, nil)
	require.NoError(t, err)

	note, err := n.Add(ctx, "draft", "", nil)
	require.NoError(t, err)
	for _, content := range []string{"h", "he", "hel", "hell", "hello"} {
		c := content
		_, err := n.Update(ctx, note.ID, Update{Content: &c})
		require.NoError(t, err)
	}

	assert.Zero(t, rec.SetCount(), "typing must not hit the database")
	assert.Equal(t, 1, s.PendingCount())

	sched.Advance(dstore.DefaultDebounce)
	writes := rec.Writes(NotesKey)
	require.Len(t, writes, 1, "a burst of edits is one durable write")

	// a fresh collection hydrates from the database
	reopened, err := Open(ctx, s, nil)
	require.NoError(t, err)
	got, err := reopened.Get(note.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
}

func TestLabels(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	storage := lstore.NewLocalStore(dbtesting.NewRecordingDB(nil))
	labels, err := OpenLabels(ctx, storage, &Options{Now: c.now})
	require.NoError(t, err)

	work, err := labels.AddByName(ctx, "  Work ")
	require.NoError(t, err)
	assert.Equal(t, "work", work.Name)

	again, err := labels.AddByName(ctx, "WORK")
	require.NoError(t, err)
	assert.Equal(t, work.ID, again.ID, "names are de-duplicated")
	assert.Len(t, labels.All(), 1)

	_, err = labels.AddByName(ctx, "   ")
	assert.Error(t, err)

	c.tick()
	touched, err := labels.Touch(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, c.t.UnixMilli(), touched.LastUsedAt)

	found, ok := labels.ByName("work ")
	require.True(t, ok)
	assert.Equal(t, work.ID, found.ID)

	reopened, err := OpenLabels(ctx, storage, nil)
	require.NoError(t, err)
	assert.Len(t, reopened.All(), 1)

	removed, err := labels.Delete(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", removed.Name)
	_, ok = labels.ByName("work")
	assert.False(t, ok)
	_, err = labels.Delete(ctx, work.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteLabelFromNotes(t *testing.T) {
	ctx := context.Background()
	storage := lstore.NewLocalStore(dbtesting.NewRecordingDB(nil))
	n, err := Open(ctx, storage, nil)
	require.NoError(t, err)
	labels, err := OpenLabels(ctx, storage, nil)
	require.NoError(t, err)

	shared, err := labels.AddByName(ctx, "shared-label")
	require.NoError(t, err)
	first, err := n.Add(ctx, "Note 1", "", []string{"shared-label", "other"})
	require.NoError(t, err)
	second, err := n.Add(ctx, "Note 2", "", []string{"Shared-Label"})
	require.NoError(t, err)
	before, _ := n.Get(second.ID)

	changed, err := DeleteLabel(ctx, n, labels, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	got, _ := n.Get(first.ID)
	assert.Equal(t, []string{"other"}, got.Labels)
	got, _ = n.Get(second.ID)
	assert.Empty(t, got.Labels)
	assert.Equal(t, before.UpdatedAt, got.UpdatedAt)
	assert.Empty(t, n.ByLabel("shared-label"))
	_, ok := labels.ByName("shared-label")
	assert.False(t, ok)

	reopened, err := Open(ctx, storage, nil)
	require.NoError(t, err)
	got, _ = reopened.Get(first.ID)
	assert.Equal(t, []string{"other"}, got.Labels)

	_, err = DeleteLabel(ctx, n, labels, shared.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenameLabel(t *testing.T) {
	ctx := context.Background()
	storage := lstore.NewLocalStore(dbtesting.NewRecordingDB(nil))
	n, err := Open(ctx, storage, nil)
	require.NoError(t, err)
	labels, err := OpenLabels(ctx, storage, nil)
	require.NoError(t, err)

	old, err := labels.AddByName(ctx, "oldname")
	require.NoError(t, err)
	_, err = labels.AddByName(ctx, "taken")
	require.NoError(t, err)
	note, err := n.Add(ctx, "Note 1", "", []string{"oldname", "newname"})
	require.NoError(t, err)
	untouched, err := n.Add(ctx, "Note 2", "", []string{"taken"})
	require.NoError(t, err)

	_, err = RenameLabel(ctx, n, labels, old.ID, " Taken ")
	assert.Error(t, err, "names must stay unique")
	_, err = RenameLabel(ctx, n, labels, old.ID, "  ")
	assert.Error(t, err)

	changed, err := RenameLabel(ctx, n, labels, old.ID, " NewName ")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	renamed, ok := labels.ByName("newname")
	require.True(t, ok)
	assert.Equal(t, old.ID, renamed.ID)
	_, ok = labels.ByName("oldname")
	assert.False(t, ok)

	got, _ := n.Get(note.ID)
	assert.Equal(t, []string{"newname"}, got.Labels, "the renamed label merges with an existing one")
	got, _ = n.Get(untouched.ID)
	assert.Equal(t, []string{"taken"}, got.Labels)
	assert.Len(t, n.ByLabel("newname"), 1)

	_, err = RenameLabel(ctx, n, labels, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}
