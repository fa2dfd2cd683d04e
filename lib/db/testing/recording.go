package testing

import (
	"context"
	"errors"
	"sync"

	"github.com/ValentinKolb/bKV/lib/db"
)

// ErrInjected is returned by RecordingDB when a failure was injected
var ErrInjected = errors.New("injected failure")

// OpKind identifies a recorded write operation
type OpKind string

const (
	OpSet    OpKind = "set"
	OpDelete OpKind = "delete"
)

// Op is a single recorded write against the wrapped database.
// Failed writes are recorded too, with Err set.
type Op struct {
	Kind  OpKind
	Key   string
	Value string
	Err   error
}

// RecordingDB wraps a KVDB and records every Set and Delete.
// Failures can be injected and writes can be held back with a gate,
// which makes the timing of durable writes observable in tests.
type RecordingDB struct {
	db.KVDB

	mu       sync.Mutex
	ops      []Op
	gets     int
	failNext int
	failAll  bool
	gate     chan struct{}
	entered  chan string
}

// NewRecordingDB wraps inner. If inner is nil an empty in-memory map is used.
func NewRecordingDB(inner db.KVDB) *RecordingDB {
	if inner == nil {
		inner = newMapDB()
	}
	return &RecordingDB{KVDB: inner}
}

// FailNext makes the next n writes fail with ErrInjected
func (r *RecordingDB) FailNext(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

// FailAll makes every write (and read) fail with ErrInjected until reset with false
func (r *RecordingDB) FailAll(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAll = fail
}

// Hold blocks all following writes until Release is called.
// The returned channel receives the key of every write that reached the gate.
func (r *RecordingDB) Hold() <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = make(chan struct{})
	r.entered = make(chan string, 64)
	return r.entered
}

// Release unblocks writes held by Hold
func (r *RecordingDB) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gate != nil {
		close(r.gate)
		r.gate = nil
	}
}

// Ops returns a copy of all recorded writes in order
func (r *RecordingDB) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Writes returns the recorded successful writes for key
func (r *RecordingDB) Writes(key string) []Op {
	var out []Op
	for _, op := range r.Ops() {
		if op.Key == key && op.Err == nil {
			out = append(out, op)
		}
	}
	return out
}

// SetCount returns the number of Set calls (successful or not)
func (r *RecordingDB) SetCount() int {
	n := 0
	for _, op := range r.Ops() {
		if op.Kind == OpSet {
			n++
		}
	}
	return n
}

// GetCount returns the number of Get calls that reached the wrapped database
func (r *RecordingDB) GetCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (r *RecordingDB) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.Lock()
	r.gets++
	failAll := r.failAll
	r.mu.Unlock()

	if failAll {
		return "", false, ErrInjected
	}
	return r.KVDB.Get(ctx, key)
}

func (r *RecordingDB) Set(ctx context.Context, key, value string) error {
	err := r.before(ctx, key)
	if err == nil {
		err = r.KVDB.Set(ctx, key, value)
	}
	r.record(Op{Kind: OpSet, Key: key, Value: value, Err: err})
	return err
}

func (r *RecordingDB) Delete(ctx context.Context, key string) error {
	err := r.before(ctx, key)
	if err == nil {
		err = r.KVDB.Delete(ctx, key)
	}
	r.record(Op{Kind: OpDelete, Key: key, Err: err})
	return err
}

// before waits at the gate (if any) and decides whether to inject a failure
func (r *RecordingDB) before(ctx context.Context, key string) error {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	r.mu.Unlock()

	if gate != nil {
		select {
		case entered <- key:
		default:
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return ErrInjected
	}
	if r.failNext > 0 {
		r.failNext--
		return ErrInjected
	}
	return nil
}

func (r *RecordingDB) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// --------------------------------------------------------------------------
// Fallback Database
// --------------------------------------------------------------------------

// mapDB is a minimal KVDB so this package does not depend on an engine package
type mapDB struct {
	mu   sync.RWMutex
	data map[string]string
}

func newMapDB() *mapDB {
	return &mapDB{data: make(map[string]string)}
}

func (m *mapDB) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *mapDB) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapDB) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapDB) SupportsFeature(feature db.Feature) bool {
	return (db.FeatureGet|db.FeatureSet|db.FeatureDelete)&feature == feature
}

func (m *mapDB) GetInfo() db.DatabaseInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	size := 0
	for k, v := range m.data {
		size += len(k) + len(v)
	}
	return db.DatabaseInfo{
		SizeBytes:         size,
		DbType:            db.ImplMemory,
		SupportedFeatures: []db.Feature{db.FeatureGet, db.FeatureSet, db.FeatureDelete},
	}
}

func (m *mapDB) Close() error {
	return nil
}
