package lstore

import (
	"context"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lstore")

type storeImpl struct {
	db db.KVDB
}

// NewLocalStore creates a new write-through store on top of database.
// Every call is forwarded to the database directly, nothing is buffered.
func NewLocalStore(database db.KVDB) store.IFlushStore {
	return &storeImpl{
		db: database,
	}
}

// NewLocalStoreFromFactory creates the database with factory and wraps it in a local store
func NewLocalStoreFromFactory(factory store.DBFactory) (store.IFlushStore, error) {
	database, err := factory()
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "failed to create database", err)
	}
	return NewLocalStore(database), nil
}

// check reports (and logs) whether the database supports feature
func (s *storeImpl) check(feature db.Feature, op string) bool {
	if s.db.SupportsFeature(feature) {
		return true
	}
	log.Errorf("%v", store.NewError(store.RetCUnsupportedOperation, op+" operation is not supported"))
	return false
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) GetItem(ctx context.Context, name string) (string, bool) {
	if !s.check(db.FeatureGet, "Get") {
		return "", false
	}
	value, ok, err := s.db.Get(ctx, name)
	if err != nil {
		log.Errorf("%v", store.WrapError(store.RetCBackendError, "failed to read "+name, err))
		return "", false
	}
	return value, ok
}

func (s *storeImpl) SetItem(ctx context.Context, name, value string) {
	if !s.check(db.FeatureSet, "Set") {
		return
	}
	if err := s.db.Set(ctx, name, value); err != nil {
		log.Errorf("%v", store.WrapError(store.RetCBackendError, "failed to write "+name, err))
	}
}

func (s *storeImpl) RemoveItem(ctx context.Context, name string) {
	if !s.check(db.FeatureDelete, "Delete") {
		return
	}
	if err := s.db.Delete(ctx, name); err != nil {
		log.Errorf("%v", store.WrapError(store.RetCBackendError, "failed to remove "+name, err))
	}
}

// FlushAll is a no-op, writes are never pending
func (s *storeImpl) FlushAll(context.Context) []store.FlushResult {
	return nil
}

func (s *storeImpl) PendingCount() int {
	return 0
}
