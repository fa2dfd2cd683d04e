package db

import "context"

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemory   Implementation = "memory"
	ImplFile     Implementation = "file"
	ImplSQLite   Implementation = "sqlite"
	ImplPostgres Implementation = "postgres"
	ImplRemote   Implementation = "remote"
)

// Feature represents database features as bit flags
type Feature uint64

const (
	FeatureGet         Feature = 1 << iota // Support for Get operations
	FeatureSet                             // Support for Set operations
	FeatureDelete                          // Support for Delete operations
	FeatureDurable                         // Data survives a process restart
	FeatureCompression                     // Values are stored compressed
)

func (f Feature) String() string {
	switch f {
	case FeatureGet:
		return "Get"
	case FeatureSet:
		return "Set"
	case FeatureDelete:
		return "Delete"
	case FeatureDurable:
		return "Durable"
	case FeatureCompression:
		return "Compression"
	default:
		return "Unknown"
	}
}

type DatabaseInfo struct {
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines the backing durable store used beneath the stores of this module.
// Keys and values are opaque strings. Implementations must be safe for concurrent use
// and should honour context cancellation wherever they perform I/O.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	// A missing key is not an error.
	Get(ctx context.Context, key string) (value string, loaded bool, err error)

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates the value for a key.
	// Once Set returns without an error the value is as durable as the implementation allows.
	Set(ctx context.Context, key, value string) (err error)

	// Delete removes the key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) (err error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the database implementation supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the database.
	GetInfo() (info DatabaseInfo)

	// Close releases all resources held by the database.
	Close() (err error)
}
