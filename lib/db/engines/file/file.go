package file

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum    = "BKVFILE\x00" // File format identifier
	fileVersion = 1             // File format version
	fileExt     = ".val"        // Extension of value files
	headerSize  = len(magicNum) + 1 + 1 + 4

	flagSnappy byte = 1 << 0 // value is snappy encoded
)

// DBOptions configures the file database
type DBOptions struct {
	Dir      string // Directory holding one file per key
	Compress bool   // Snappy-encode values before writing
}

// DefaultOptions returns the default options (directory "data", no compression)
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Dir:      "data",
		Compress: false,
	}
}

// fileImpl stores every key in its own file. File names are the xxhash of the key,
// the key itself is kept in the file header to detect hash collisions.
type fileImpl struct {
	dir      string
	compress bool

	// mu serializes writers so the collision check and the rename happen as one step
	mu sync.RWMutex
}

// NewFileDB creates a new file backed database in opts.Dir (created if missing)
func NewFileDB(opts *DBOptions) (db.KVDB, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &fileImpl{
		dir:      opts.Dir,
		compress: opts.Compress,
	}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.KVDB)
// --------------------------------------------------------------------------

func (f *fileImpl) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	storedKey, value, err := f.readFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	// a different key with the same hash is stored in the file
	if storedKey != key {
		return "", false, nil
	}
	return value, true, nil
}

func (f *fileImpl) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)

	// refuse to overwrite a colliding key
	storedKey, _, err := f.readFile(path)
	if err == nil && storedKey != key {
		return fmt.Errorf("hash collision: key %q collides with stored key %q", key, storedKey)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// write to a temp file and rename it into place
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(f.encode(key, value)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (f *fileImpl) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	storedKey, _, err := f.readFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if storedKey != key {
		return nil
	}
	return os.Remove(path)
}

func (f *fileImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureGet | db.FeatureSet | db.FeatureDelete | db.FeatureDurable
	if f.compress {
		supportedFeatures |= db.FeatureCompression
	}
	return supportedFeatures&feature == feature
}

func (f *fileImpl) GetInfo() db.DatabaseInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()

	size, files := 0, 0
	entries, _ := os.ReadDir(f.dir)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		if info, err := entry.Info(); err == nil {
			size += int(info.Size())
			files++
		}
	}

	features := []db.Feature{db.FeatureGet, db.FeatureSet, db.FeatureDelete, db.FeatureDurable}
	if f.compress {
		features = append(features, db.FeatureCompression)
	}

	meta := &struct {
		Dir      string `json:"dir"`
		Files    int    `json:"files"`
		Compress bool   `json:"compress"`
	}{
		Dir:      f.dir,
		Files:    files,
		Compress: f.compress,
	}

	return db.DatabaseInfo{
		SizeBytes:         size,
		DbType:            db.ImplFile,
		SupportedFeatures: features,
		Metadata:          meta,
	}
}

func (f *fileImpl) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// File Format
// --------------------------------------------------------------------------

// path returns the file path for a key
func (f *fileImpl) path(key string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%016x%s", xxhash.Sum64String(key), fileExt))
}

// encode builds the file content: magic | version | flags | key length | key | value
func (f *fileImpl) encode(key, value string) []byte {
	var flags byte
	payload := []byte(value)
	if f.compress {
		flags |= flagSnappy
		payload = snappy.Encode(nil, payload)
	}

	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(key)+len(payload)))
	buf.WriteString(magicNum)
	buf.WriteByte(fileVersion)
	buf.WriteByte(flags)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(key)))
	buf.WriteString(key)
	buf.Write(payload)
	return buf.Bytes()
}

// readFile reads and decodes a value file.
// Files written with and without compression can be mixed in one directory.
func (f *fileImpl) readFile(path string) (key string, value string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	if len(data) < headerSize || string(data[:len(magicNum)]) != magicNum {
		return "", "", fmt.Errorf("invalid file format: %s", path)
	}
	pos := len(magicNum)

	if version := data[pos]; version != fileVersion {
		return "", "", fmt.Errorf("unsupported version: %d (expected %d)", version, fileVersion)
	}
	flags := data[pos+1]
	pos += 2

	keyLen := int(binary.LittleEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+keyLen > len(data) {
		return "", "", fmt.Errorf("invalid file format: truncated key in %s", path)
	}
	key = string(data[pos : pos+keyLen])
	payload := data[pos+keyLen:]

	if flags&flagSnappy != 0 {
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return "", "", fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	return key, string(payload), nil
}
