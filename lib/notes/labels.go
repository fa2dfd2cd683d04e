package notes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/bKV/lib/persist"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/google/uuid"
)

// Label names a group of notes. Names are stored lower-cased and trimmed.
type Label struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PresetID   string `json:"presetId,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
	LastUsedAt int64  `json:"lastUsedAt,omitempty"`
}

type labelsState struct {
	Labels []Label `json:"labels"`
}

// Labels is the label collection, saved under LabelsKey after every change
type Labels struct {
	mu     sync.RWMutex
	labels []Label
	slice  *persist.Slice[labelsState]
	now    func() time.Time
}

// OpenLabels loads the label collection from storage
func OpenLabels(ctx context.Context, storage store.IStore, opts *Options) (*Labels, error) {
	l := &Labels{
		slice: persist.NewSlice(storage, persist.Options[labelsState]{Name: LabelsKey}),
		now:   time.Now,
	}
	if opts != nil && opts.Now != nil {
		l.now = opts.Now
	}

	state, ok, err := l.slice.Hydrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	if ok {
		l.labels = state.Labels
	}
	return l, nil
}

func (l *Labels) save(ctx context.Context) error {
	return l.slice.Save(ctx, labelsState{Labels: l.labels})
}

// AddByName returns the label called name, creating it if it does not exist yet
func (l *Labels) AddByName(ctx context.Context, name string) (Label, error) {
	normalized := normalizeLabel(name)
	if normalized == "" {
		return Label{}, fmt.Errorf("label name must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, label := range l.labels {
		if label.Name == normalized {
			return label, nil
		}
	}

	now := l.now().UnixMilli()
	label := Label{
		ID:         uuid.NewString(),
		Name:       normalized,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	l.labels = append([]Label{label}, l.labels...)
	return label, l.save(ctx)
}

// Touch marks the label as used now
func (l *Labels) Touch(ctx context.Context, id string) (Label, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.labels {
		if l.labels[i].ID == id {
			l.labels[i].LastUsedAt = l.now().UnixMilli()
			return l.labels[i], l.save(ctx)
		}
	}
	return Label{}, fmt.Errorf("label %s: %w", id, ErrNotFound)
}

// Delete removes a label and returns it. Notes keep the name, use DeleteLabel
// to take it off the notes as well.
func (l *Labels) Delete(ctx context.Context, id string) (Label, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.labels {
		if l.labels[i].ID == id {
			label := l.labels[i]
			l.labels = append(l.labels[:i], l.labels[i+1:]...)
			return label, l.save(ctx)
		}
	}
	return Label{}, fmt.Errorf("label %s: %w", id, ErrNotFound)
}

// Rename gives a label a new name and returns the label as it was before
func (l *Labels) Rename(ctx context.Context, id, name string) (Label, error) {
	normalized := normalizeLabel(name)
	if normalized == "" {
		return Label{}, fmt.Errorf("label name must not be empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.labels {
		switch {
		case l.labels[i].ID == id:
			idx = i
		case l.labels[i].Name == normalized:
			return Label{}, fmt.Errorf("label %s already exists", normalized)
		}
	}
	if idx < 0 {
		return Label{}, fmt.Errorf("label %s: %w", id, ErrNotFound)
	}

	old := l.labels[idx]
	if old.Name == normalized {
		return old, nil
	}
	l.labels[idx].Name = normalized
	return old, l.save(ctx)
}

// ByName looks a label up by name (case-insensitive, surrounding space ignored)
func (l *Labels) ByName(name string) (Label, bool) {
	normalized := normalizeLabel(name)

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, label := range l.labels {
		if label.Name == normalized {
			return label, true
		}
	}
	return Label{}, false
}

// All returns every label, the most recently created first
func (l *Labels) All() []Label {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Label(nil), l.labels...)
}

// --------------------------------------------------------------------------
// Labels and Notes
// --------------------------------------------------------------------------

// DeleteLabel removes the label with id and takes its name off every note.
// It returns the number of notes that changed.
func DeleteLabel(ctx context.Context, n *Notes, l *Labels, id string) (int, error) {
	label, err := l.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	return n.RemoveLabel(ctx, label.Name)
}

// RenameLabel renames the label with id and renames it on every note as well.
// It returns the number of notes that changed.
func RenameLabel(ctx context.Context, n *Notes, l *Labels, id, name string) (int, error) {
	old, err := l.Rename(ctx, id, name)
	if err != nil {
		return 0, err
	}
	return n.RenameLabel(ctx, old.Name, name)
}
