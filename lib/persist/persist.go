package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/bKV/lib/store"
)

// ErrVersionMismatch is returned by Hydrate when the stored version differs from
// Options.Version and no Migrate function is set.
var ErrVersionMismatch = errors.New("persisted state has a different version")

// envelope is the stored representation of a slice
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Options configures a persisted slice
type Options[T any] struct {
	// Name is the storage key the slice is saved under
	Name string
	// Version is written with every save and compared on hydration
	Version int
	// Migrate converts the state of an older (or newer) version. Optional.
	Migrate func(raw json.RawMessage, from int) (T, error)
}

// Slice persists one state value of type T as a JSON document under a single key
type Slice[T any] struct {
	storage store.IStore
	opts    Options[T]
}

// NewSlice creates a persisted slice that saves through storage
func NewSlice[T any](storage store.IStore, opts Options[T]) *Slice[T] {
	return &Slice[T]{
		storage: storage,
		opts:    opts,
	}
}

// Name returns the storage key of the slice
func (s *Slice[T]) Name() string {
	return s.opts.Name
}

// Save serializes state and hands it to the storage. Only a failure to serialize
// is returned; storage failures are handled by the storage.
func (s *Slice[T]) Save(ctx context.Context, state T) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", s.opts.Name, err)
	}
	data, err := json.Marshal(envelope{State: raw, Version: s.opts.Version})
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", s.opts.Name, err)
	}
	s.storage.SetItem(ctx, s.opts.Name, string(data))
	return nil
}

// Hydrate loads the persisted state. The boolean return value is false if nothing
// is stored, the zero value of T is returned then.
func (s *Slice[T]) Hydrate(ctx context.Context) (T, bool, error) {
	var state T

	data, ok := s.storage.GetItem(ctx, s.opts.Name)
	if !ok {
		return state, false, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return state, false, fmt.Errorf("failed to parse %s: %w", s.opts.Name, err)
	}

	if env.Version != s.opts.Version {
		if s.opts.Migrate == nil {
			return state, false, fmt.Errorf("%w: %s is at version %d, expected %d",
				ErrVersionMismatch, s.opts.Name, env.Version, s.opts.Version)
		}
		migrated, err := s.opts.Migrate(env.State, env.Version)
		if err != nil {
			return state, false, fmt.Errorf("failed to migrate %s from version %d: %w", s.opts.Name, env.Version, err)
		}
		return migrated, true, nil
	}

	if len(env.State) == 0 || string(env.State) == "null" {
		return state, true, nil
	}
	if err := json.Unmarshal(env.State, &state); err != nil {
		return state, false, fmt.Errorf("failed to parse state of %s: %w", s.opts.Name, err)
	}
	return state, true, nil
}

// Clear removes the persisted state
func (s *Slice[T]) Clear(ctx context.Context) {
	s.storage.RemoveItem(ctx, s.opts.Name)
}
