package dstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/ValentinKolb/bKV/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

var log = logger.GetLogger("store")

// flight marks a durable operation in progress for one key.
// done is closed when the operation finished.
type flight struct {
	done chan struct{}
}

// Store is a debounced store. Writes are kept in a ledger and only the last value
// per key is written to the database once the key has been quiet for the debounce window.
type Store struct {
	db   db.KVDB
	opts Options

	mu      sync.Mutex
	ledger  *internal.Ledger
	flights map[string]*flight
	closed  bool

	reads   singleflight.Group
	running sync.WaitGroup // scheduled commits not yet finished or cancelled
	metrics *storeMetrics
}

var (
	_ store.IStore   = (*Store)(nil)
	_ store.IFlusher = (*Store)(nil)
)

// NewDebouncedStore creates a debounced store in front of database.
// A nil opts uses DefaultOptions.
func NewDebouncedStore(database db.KVDB, opts *Options) *Store {
	s := &Store{
		db:      database,
		opts:    opts.withDefaults(),
		ledger:  internal.NewLedger(),
		flights: make(map[string]*flight),
	}
	s.metrics = newStoreMetrics(s.opts.Metrics, s.opts.Name, func() float64 {
		return float64(s.PendingCount())
	})
	return s
}

// NewDebouncedStoreFromFactory creates the database with factory and wraps it in a debounced store
func NewDebouncedStoreFromFactory(factory store.DBFactory, opts *Options) (*Store, error) {
	database, err := factory()
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "failed to create database", err)
	}
	return NewDebouncedStore(database, opts), nil
}

// DB returns the database the store writes to
func (s *Store) DB() db.KVDB {
	return s.db
}

func (s *Store) available() bool {
	return s.opts.Available == nil || s.opts.Available()
}

// cancel cancels a scheduled commit. Caller holds mu.
func (s *Store) cancel(task internal.Task) {
	if task != nil && task.Cancel() {
		s.running.Done()
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

type readResult struct {
	value  string
	loaded bool
}

func (s *Store) GetItem(ctx context.Context, name string) (string, bool) {
	if !s.available() {
		return "", false
	}

	s.mu.Lock()
	if entry, ok := s.ledger.Get(name); ok {
		s.mu.Unlock()
		return entry.Value, true
	}
	s.mu.Unlock()

	// the read is shared, so it must not be canceled with the caller that started it
	shared := context.WithoutCancel(ctx)
	ch := s.reads.DoChan(name, func() (interface{}, error) {
		value, loaded, err := s.db.Get(shared, name)
		return readResult{value: value, loaded: loaded}, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		log.Warningf("read of %s in store %s aborted: %v", name, s.opts.Name, ctx.Err())
		return "", false
	}
	if res.Err != nil {
		s.metrics.readErrors.Inc()
		log.Errorf("%v", store.WrapError(store.RetCBackendError, "failed to read "+name, res.Err))
		return "", false
	}
	r := res.Val.(readResult)
	return r.value, r.loaded
}

func (s *Store) SetItem(ctx context.Context, name, value string) {
	if !s.available() {
		return
	}

	s.mu.Lock()
	s.metrics.sets.Inc()

	if old, ok := s.ledger.Get(name); ok {
		s.metrics.coalesced.Inc()
		s.cancel(old.Task)
	}
	entry := s.ledger.Set(name, value, nil)

	// a closed store writes through
	if s.closed {
		s.mu.Unlock()
		log.Warningf("store %s is closed, writing %s through", s.opts.Name, name)
		s.report(s.commit(ctx, name, entry.Version, store.SourceFlush))
		return
	}

	s.running.Add(1)
	task := s.opts.Scheduler.Schedule(s.opts.Debounce, func() {
		defer s.running.Done()
		s.fire(name, entry.Version)
	})
	s.ledger.SetTask(name, entry.Version, task)
	s.mu.Unlock()
}

func (s *Store) RemoveItem(ctx context.Context, name string) {
	if !s.available() {
		return
	}

	s.mu.Lock()
	var version uint64
	if entry, ok := s.ledger.Delete(name); ok {
		version = entry.Version
		s.cancel(entry.Task)
	}

	f, err := s.acquire(ctx, name)
	if err != nil {
		s.mu.Unlock()
		s.report(store.FlushResult{Key: name, Version: version, Source: store.SourceRemove, Err: err}, true)
		return
	}
	s.mu.Unlock()

	start := time.Now()
	err = s.db.Delete(ctx, name)
	duration := time.Since(start)

	s.mu.Lock()
	s.release(name, f)
	s.mu.Unlock()

	s.metrics.removes.Inc()
	if err != nil {
		err = store.WrapError(store.RetCBackendError, "failed to remove "+name, err)
	}
	s.report(store.FlushResult{
		Key:      name,
		Version:  version,
		Source:   store.SourceRemove,
		Err:      err,
		Duration: duration,
	}, true)
}

// --------------------------------------------------------------------------
// Flush Controller
// --------------------------------------------------------------------------

// FlushAll writes every pending value now and returns one result per written key,
// sorted by key. Entries replaced by a newer SetItem while flushing are left to their own timer.
func (s *Store) FlushAll(ctx context.Context) []store.FlushResult {
	s.mu.Lock()
	entries := s.ledger.Entries()
	for _, entry := range entries {
		s.cancel(entry.Task)
		s.ledger.SetTask(entry.Key, entry.Version, nil)
	}
	s.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	results := make([]store.FlushResult, len(entries))
	committed := make([]bool, len(entries))

	var g errgroup.Group
	g.SetLimit(s.opts.FlushConcurrency)
	for i, entry := range entries {
		g.Go(func() error {
			results[i], committed[i] = s.commit(ctx, entry.Key, entry.Version, store.SourceFlush)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]store.FlushResult, 0, len(entries))
	for i := range results {
		if committed[i] {
			s.report(results[i], true)
			out = append(out, results[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	log.Debugf("flushed %d of %d pending keys in store %s", len(out), len(entries), s.opts.Name)
	return out
}

// PendingCount returns the number of keys with a value not yet written to the database
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Len()
}

// Close flushes all pending values and waits for commits started by timers.
// Afterwards SetItem writes through. The database is not closed.
func (s *Store) Close(ctx context.Context) []store.FlushResult {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	results := s.FlushAll(ctx)
	s.running.Wait()
	return results
}

// --------------------------------------------------------------------------
// Commit
// --------------------------------------------------------------------------

// fire is run by the scheduler once the debounce window of a write elapsed
func (s *Store) fire(key string, version uint64) {
	ctx := context.Background()
	if s.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
	}
	s.report(s.commit(ctx, key, version, store.SourceTimer))
}

// commit writes the ledger entry for key to the database if it still carries version.
// The boolean return value is false if the entry was replaced or removed in the meantime,
// nothing was written then.
func (s *Store) commit(ctx context.Context, key string, version uint64, source store.FlushSource) (store.FlushResult, bool) {
	result := store.FlushResult{Key: key, Version: version, Source: source}

	s.mu.Lock()
	entry, ok := s.ledger.Get(key)
	if !ok || entry.Version != version {
		s.mu.Unlock()
		s.metrics.superseded.Inc()
		return result, false
	}

	f, err := s.acquire(ctx, key)
	if err != nil {
		s.ledger.DeleteIfVersion(key, version)
		s.mu.Unlock()
		result.Err = err
		return result, true
	}

	// the entry may have changed while waiting for another operation on the key
	entry, ok = s.ledger.Get(key)
	if !ok || entry.Version != version {
		s.release(key, f)
		s.mu.Unlock()
		s.metrics.superseded.Inc()
		return result, false
	}
	s.mu.Unlock()

	start := time.Now()
	err = s.db.Set(ctx, key, entry.Value)
	result.Duration = time.Since(start)

	s.mu.Lock()
	s.release(key, f)
	// a failed write is dropped as well, there is no retry
	s.ledger.DeleteIfVersion(key, version)
	s.mu.Unlock()

	s.metrics.writes.Inc()
	s.metrics.writeTime.Update(result.Duration.Seconds())
	if err != nil {
		s.metrics.writeErrors.Inc()
		result.Err = store.WrapError(store.RetCBackendError, "failed to write "+key, err)
	}
	return result, true
}

// acquire waits until no durable operation runs for key and registers a new one.
// Caller holds mu, it is released while waiting and held again on return.
func (s *Store) acquire(ctx context.Context, key string) (*flight, error) {
	for {
		f, busy := s.flights[key]
		if !busy {
			break
		}
		s.mu.Unlock()
		select {
		case <-f.done:
		case <-ctx.Done():
			s.mu.Lock()
			return nil, ctx.Err()
		}
		s.mu.Lock()
	}

	f := &flight{done: make(chan struct{})}
	s.flights[key] = f
	return f, nil
}

// release ends the durable operation f. Reads of key started before this point are
// not shared with later callers. Caller holds mu.
func (s *Store) release(key string, f *flight) {
	s.reads.Forget(key)
	if s.flights[key] == f {
		delete(s.flights, key)
	}
	close(f.done)
}

// report logs a failed result and passes it to the OnResult hook
func (s *Store) report(result store.FlushResult, committed bool) {
	if !committed {
		return
	}
	if result.Err != nil {
		log.Errorf("%s", result)
	} else {
		log.Debugf("%s", result)
	}
	if s.opts.OnResult != nil {
		s.opts.OnResult(result)
	}
}
