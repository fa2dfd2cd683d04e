package notes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/bKV/lib/persist"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("notes")

// ErrNotFound is returned for unknown note or label ids
var ErrNotFound = errors.New("not found")

const (
	NotesKey  = "toonnotes-notes"
	LabelsKey = "toonnotes-labels"

	// TrashRetention is how long soft-deleted notes are kept by PurgeTrash
	TrashRetention = 30 * 24 * time.Hour
)

// Note is a single note. Timestamps are unix milliseconds.
type Note struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Labels     []string `json:"labels"`
	Color      string   `json:"color,omitempty"`
	IsPinned   bool     `json:"isPinned"`
	IsArchived bool     `json:"isArchived"`
	IsDeleted  bool     `json:"isDeleted"`
	DeletedAt  int64    `json:"deletedAt,omitempty"`
	CreatedAt  int64    `json:"createdAt"`
	UpdatedAt  int64    `json:"updatedAt"`
}

// Update holds the fields to change on a note. Nil fields are left untouched.
type Update struct {
	Title   *string
	Content *string
	Labels  []string
	Color   *string
}

type notesState struct {
	Notes []Note `json:"notes"`
}

// Options configures a notes collection
type Options struct {
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// Notes is the notes collection. The whole collection is saved under NotesKey
// after every change.
type Notes struct {
	mu    sync.RWMutex
	notes []Note
	slice *persist.Slice[notesState]
	now   func() time.Time
}

// Open loads the notes collection from storage. A missing document starts an empty collection.
func Open(ctx context.Context, storage store.IStore, opts *Options) (*Notes, error) {
	n := &Notes{
		slice: persist.NewSlice(storage, persist.Options[notesState]{Name: NotesKey}),
		now:   time.Now,
	}
	if opts != nil && opts.Now != nil {
		n.now = opts.Now
	}

	state, ok, err := n.slice.Hydrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	if ok {
		n.notes = state.Notes
	}
	log.Debugf("loaded %d notes", len(n.notes))
	return n, nil
}

func (n *Notes) millis() int64 {
	return n.now().UnixMilli()
}

// save persists the collection. Caller holds mu.
func (n *Notes) save(ctx context.Context) error {
	return n.slice.Save(ctx, notesState{Notes: n.notes})
}

// mutate applies fn to the note with id and saves the collection
func (n *Notes) mutate(ctx context.Context, id string, fn func(note *Note)) (Note, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := range n.notes {
		if n.notes[i].ID == id {
			fn(&n.notes[i])
			return cloneNote(n.notes[i]), n.save(ctx)
		}
	}
	return Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

// Add creates a new note. New notes are placed first.
func (n *Notes) Add(ctx context.Context, title, content string, labels []string) (Note, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.millis()
	note := Note{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Content:   content,
		Labels:    normalizeLabels(labels),
		CreatedAt: now,
		UpdatedAt: now,
	}
	n.notes = append([]Note{note}, n.notes...)
	return cloneNote(note), n.save(ctx)
}

// Update changes the given fields of a note and bumps UpdatedAt
func (n *Notes) Update(ctx context.Context, id string, u Update) (Note, error) {
	now := n.millis()
	return n.mutate(ctx, id, func(note *Note) {
		if u.Title != nil {
			note.Title = strings.TrimSpace(*u.Title)
		}
		if u.Content != nil {
			note.Content = *u.Content
		}
		if u.Labels != nil {
			note.Labels = normalizeLabels(u.Labels)
		}
		if u.Color != nil {
			note.Color = *u.Color
		}
		note.UpdatedAt = now
	})
}

// Delete moves a note to the trash and unpins it
func (n *Notes) Delete(ctx context.Context, id string) (Note, error) {
	now := n.millis()
	return n.mutate(ctx, id, func(note *Note) {
		note.IsDeleted = true
		note.DeletedAt = now
		note.IsPinned = false
	})
}

// Restore takes a note out of the trash
func (n *Notes) Restore(ctx context.Context, id string) (Note, error) {
	return n.mutate(ctx, id, func(note *Note) {
		note.IsDeleted = false
		note.DeletedAt = 0
	})
}

// Purge removes a note permanently
func (n *Notes) Purge(ctx context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := range n.notes {
		if n.notes[i].ID == id {
			n.notes = append(n.notes[:i], n.notes[i+1:]...)
			return n.save(ctx)
		}
	}
	return fmt.Errorf("note %s: %w", id, ErrNotFound)
}

// PurgeTrash permanently removes notes that were deleted more than maxAge ago
// and returns how many were removed. Nothing is saved if no note expired.
func (n *Notes) PurgeTrash(ctx context.Context, maxAge time.Duration) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	cutoff := n.millis() - maxAge.Milliseconds()
	kept := n.notes[:0]
	removed := 0
	for _, note := range n.notes {
		if note.IsDeleted && note.DeletedAt <= cutoff {
			removed++
			continue
		}
		kept = append(kept, note)
	}
	n.notes = kept
	if removed == 0 {
		return 0, nil
	}
	return removed, n.save(ctx)
}

// Archive archives a note and unpins it
func (n *Notes) Archive(ctx context.Context, id string) (Note, error) {
	return n.mutate(ctx, id, func(note *Note) {
		note.IsArchived = true
		note.IsPinned = false
	})
}

// Unarchive moves a note back to the active notes
func (n *Notes) Unarchive(ctx context.Context, id string) (Note, error) {
	return n.mutate(ctx, id, func(note *Note) {
		note.IsArchived = false
	})
}

// TogglePin pins an unpinned note and unpins a pinned one
func (n *Notes) TogglePin(ctx context.Context, id string) (Note, error) {
	return n.mutate(ctx, id, func(note *Note) {
		note.IsPinned = !note.IsPinned
	})
}

// RemoveLabel takes label off every note and returns how many notes carried it.
// UpdatedAt is left alone.
func (n *Notes) RemoveLabel(ctx context.Context, label string) (int, error) {
	return n.rewriteLabels(ctx, label, nil)
}

// RenameLabel replaces label with name on every note and returns how many notes
// carried it. UpdatedAt is left alone.
func (n *Notes) RenameLabel(ctx context.Context, label, name string) (int, error) {
	renamed := normalizeLabel(name)
	if renamed == "" {
		return 0, fmt.Errorf("label name must not be empty")
	}
	return n.rewriteLabels(ctx, label, []string{renamed})
}

// rewriteLabels replaces label on every note with replacement and saves once
// if any note changed
func (n *Notes) rewriteLabels(ctx context.Context, label string, replacement []string) (int, error) {
	want := normalizeLabel(label)

	n.mu.Lock()
	defer n.mu.Unlock()

	changed := 0
	for i := range n.notes {
		labels := n.notes[i].Labels
		out := make([]string, 0, len(labels))
		hit := false
		for _, l := range labels {
			if normalizeLabel(l) == want {
				hit = true
				out = append(out, replacement...)
				continue
			}
			out = append(out, l)
		}
		if hit {
			n.notes[i].Labels = normalizeLabels(out)
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, n.save(ctx)
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// Get returns the note with id
func (n *Notes) Get(id string) (Note, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, note := range n.notes {
		if note.ID == id {
			return cloneNote(note), nil
		}
	}
	return Note{}, fmt.Errorf("note %s: %w", id, ErrNotFound)
}

// Active returns notes that are neither archived nor deleted,
// pinned notes first, then the most recently updated.
func (n *Notes) Active() []Note {
	out := n.filter(func(note Note) bool { return !note.IsArchived && !note.IsDeleted })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].UpdatedAt > out[j].UpdatedAt
	})
	return out
}

// Archived returns archived notes that are not in the trash
func (n *Notes) Archived() []Note {
	return n.filter(func(note Note) bool { return note.IsArchived && !note.IsDeleted })
}

// Deleted returns the notes in the trash
func (n *Notes) Deleted() []Note {
	return n.filter(func(note Note) bool { return note.IsDeleted })
}

// ByLabel returns active notes carrying label (case-insensitive)
func (n *Notes) ByLabel(label string) []Note {
	want := normalizeLabel(label)
	return n.filter(func(note Note) bool {
		if note.IsArchived || note.IsDeleted {
			return false
		}
		for _, l := range note.Labels {
			if normalizeLabel(l) == want {
				return true
			}
		}
		return false
	})
}

// Search returns active notes whose title or content contains query (case-insensitive).
// An empty query returns Active().
func (n *Notes) Search(query string) []Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return n.Active()
	}
	return n.filter(func(note Note) bool {
		return !note.IsArchived && !note.IsDeleted &&
			(strings.Contains(strings.ToLower(note.Title), q) || strings.Contains(strings.ToLower(note.Content), q))
	})
}

// Len returns the number of notes including archived and deleted ones
func (n *Notes) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.notes)
}

func (n *Notes) filter(keep func(Note) bool) []Note {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Note, 0, len(n.notes))
	for _, note := range n.notes {
		if keep(note) {
			out = append(out, cloneNote(note))
		}
	}
	return out
}

func cloneNote(note Note) Note {
	note.Labels = append([]string(nil), note.Labels...)
	return note
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// normalizeLabels lower-cases, trims and de-duplicates label names, keeping their order
func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = normalizeLabel(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
