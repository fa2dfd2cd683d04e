package common

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

type ServerShardType string

const (
	ShardTypeDebounced    ServerShardType = "dstore" // Debounced store
	ShardTypeWriteThrough ServerShardType = "lstore" // Write-through store
)

// ParseShardType parses the short name of a shard type
func ParseShardType(s string) (ServerShardType, error) {
	switch ServerShardType(strings.ToLower(strings.TrimSpace(s))) {
	case ShardTypeDebounced:
		return ShardTypeDebounced, nil
	case ShardTypeWriteThrough:
		return ShardTypeWriteThrough, nil
	default:
		return "", fmt.Errorf("invalid shard type %q, must be one of dstore, lstore", s)
	}
}

type ServerShard struct {
	// ShardID is the ID of the shard
	ShardID uint64
	// Type of store serving the shard
	Type ServerShardType
}

// Backend names the engine that holds the data of every shard
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendFile     Backend = "file"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// ParseBackend parses a backend name
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendMemory, BackendFile, BackendSQLite, BackendPostgres:
		return b, nil
	default:
		return "", fmt.Errorf("invalid backend %q, must be one of memory, file, sqlite, postgres", s)
	}
}

// TransportConfig configures the network side of a server
type TransportConfig struct {
	// Endpoint the server listens on, e.g. ":8080"
	Endpoint string
}

// ServerConfig holds all configuration parameters for the RPC server.
type ServerConfig struct {
	// Shards served by this server
	Shards []ServerShard

	// Storage
	Backend     Backend
	DataDir     string
	PostgresDSN string
	Compress    bool

	// Debounce window of dstore shards
	DebounceMs int64

	// Timeout of a single durable operation and of the flush on shutdown
	TimeoutSecond int64

	// Transport settings
	Transport TransportConfig

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// Debounce returns the debounce window as a duration
func (c *ServerConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Timeout returns the timeout as a duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks the configuration for obvious mistakes
func (c *ServerConfig) Validate() error {
	if len(c.Shards) == 0 {
		return fmt.Errorf("no shards configured")
	}
	seen := make(map[uint64]struct{}, len(c.Shards))
	for _, shard := range c.Shards {
		if _, ok := seen[shard.ShardID]; ok {
			return fmt.Errorf("shard %d configured twice", shard.ShardID)
		}
		seen[shard.ShardID] = struct{}{}
	}
	if _, err := ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.Backend == BackendPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("backend postgres requires a postgres DSN")
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if c.Transport.Endpoint == "" {
		return fmt.Errorf("no endpoint configured")
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Storage
	addSection("Storage")
	addField("Backend", string(c.Backend))
	switch c.Backend {
	case BackendFile, BackendSQLite:
		addField("Data Directory", c.DataDir)
	case BackendPostgres:
		addField("Postgres DSN", redactDSN(c.PostgresDSN))
	}
	if c.Backend == BackendFile {
		addField("Compression", fmt.Sprintf("%t", c.Compress))
	}
	addField("Debounce", fmt.Sprintf("%d ms", c.DebounceMs))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Log Format", c.LogFormat)

	// Shards (sorted for consistent output)
	addSection("Shards")
	shards := append([]ServerShard(nil), c.Shards...)
	sort.Slice(shards, func(i, j int) bool { return shards[i].ShardID < shards[j].ShardID })
	for _, shard := range shards {
		addField(strconv.FormatUint(shard.ShardID, 10), string(shard.Type))
	}

	return sb.String()
}

// redactDSN hides the password of a postgres connection string
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":***" + dsn[at:]
	}
	return dsn
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
