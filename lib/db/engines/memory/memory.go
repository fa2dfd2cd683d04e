package memory

import (
	"context"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/puzpuzpuz/xsync/v3"
)

// memoryImpl keeps all entries in a concurrent map
type memoryImpl struct {
	data *xsync.MapOf[string, string]
}

// NewMemoryDB creates a new in-memory database.
// Nothing is persisted; the database is meant for tests and for ephemeral shards.
func NewMemoryDB() db.KVDB {
	return &memoryImpl{
		data: xsync.NewMapOf[string, string](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (m *memoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	value, ok := m.data.Load(key)
	return value, ok, nil
}

func (m *memoryImpl) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Store(key, value)
	return nil
}

func (m *memoryImpl) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Delete(key)
	return nil
}

func (m *memoryImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureGet | db.FeatureSet | db.FeatureDelete
	return supportedFeatures&feature == feature
}

func (m *memoryImpl) GetInfo() db.DatabaseInfo {
	size := 0
	m.data.Range(func(key string, value string) bool {
		size += len(key) + len(value)
		return true
	})

	meta := &struct {
		Entries int    `json:"entries"`
		Info    string `json:"info"`
	}{
		Entries: m.data.Size(),
		Info:    "in-memory only, data is lost on restart",
	}

	return db.DatabaseInfo{
		SizeBytes:         size,
		DbType:            db.ImplMemory,
		SupportedFeatures: []db.Feature{db.FeatureGet, db.FeatureSet, db.FeatureDelete},
		Metadata:          meta,
	}
}

func (m *memoryImpl) Close() error {
	m.data.Clear()
	return nil
}
