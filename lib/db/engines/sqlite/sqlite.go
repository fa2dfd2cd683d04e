package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/bKV/lib/db"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// sqliteImpl stores all entries in a single table of an embedded SQLite database
type sqliteImpl struct {
	conn *sql.DB
	path string
}

// NewSQLiteDB opens (or creates) the SQLite database at path.
// The special path ":memory:" creates a private in-memory database.
func NewSQLiteDB(path string) (db.KVDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// a single connection avoids "database is locked" between writers
	// and keeps ":memory:" databases alive for the lifetime of the engine
	conn.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		schema,
	} {
		if _, err := conn.Exec(stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to initialize sqlite database (%s): %w", stmt, err)
		}
	}

	return &sqliteImpl{conn: conn, path: path}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (s *sqliteImpl) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *sqliteImpl) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

func (s *sqliteImpl) Delete(ctx context.Context, key string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

func (s *sqliteImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureGet | db.FeatureSet | db.FeatureDelete
	if s.path != ":memory:" {
		supportedFeatures |= db.FeatureDurable
	}
	return supportedFeatures&feature == feature
}

func (s *sqliteImpl) GetInfo() db.DatabaseInfo {
	var (
		entries int
		size    int
	)
	_ = s.conn.QueryRow("SELECT COUNT(*), COALESCE(SUM(LENGTH(key) + LENGTH(value)), 0) FROM kv").Scan(&entries, &size)

	features := []db.Feature{db.FeatureGet, db.FeatureSet, db.FeatureDelete}
	if s.path != ":memory:" {
		features = append(features, db.FeatureDurable)
	}

	meta := &struct {
		Path    string `json:"path"`
		Entries int    `json:"entries"`
	}{
		Path:    s.path,
		Entries: entries,
	}

	return db.DatabaseInfo{
		SizeBytes:         size,
		DbType:            db.ImplSQLite,
		SupportedFeatures: features,
		Metadata:          meta,
	}
}

func (s *sqliteImpl) Close() error {
	return s.conn.Close()
}
