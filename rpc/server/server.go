package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ValentinKolb/bKV/lib/db"
	"github.com/ValentinKolb/bKV/lib/db/engines/file"
	"github.com/ValentinKolb/bKV/lib/db/engines/memory"
	"github.com/ValentinKolb/bKV/lib/db/engines/postgres"
	"github.com/ValentinKolb/bKV/lib/db/engines/sqlite"
	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/ValentinKolb/bKV/lib/store/dstore"
	"github.com/ValentinKolb/bKV/lib/store/lstore"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/serializer"
	"github.com/ValentinKolb/bKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("rpc")

// defaultShutdownTimeout bounds the final flush when the config sets no timeout
const defaultShutdownTimeout = 30 * time.Second

// serverShard is a shard of the RPC server: the store it serves, the engine
// beneath it and the adapter that handles requests for the store
type serverShard struct {
	Store   store.IFlushStore
	DB      db.KVDB
	Adapter IRPCServerAdapter
	Metrics *metrics.Set
	close   func(ctx context.Context) []store.FlushResult
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		http.NewHttpServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	log.Infof("Created RPC Server")
	log.Infof(config.String())

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     xsync.NewMapOf[uint64, *serverShard](),
	}
}

// RPCServer serves the shards of a config over a transport
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, *serverShard]
}

// Serve creates the shards and serves them until ctx is canceled or the process
// receives SIGINT or SIGTERM. Before returning every pending value is flushed and
// all databases are closed.
func (s *RPCServer) Serve(ctx context.Context) error {
	if err := s.init(ctx); err != nil {
		s.shutdown()
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := s.transport.Listen(ctx, s.config)
	shutdownErr := s.shutdown()
	return errors.Join(listenErr, shutdownErr)
}

// --------------------------------------------------------------------------
// Setup
// --------------------------------------------------------------------------

func (s *RPCServer) init(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	for _, shardConfig := range s.config.Shards {
		shard, err := s.createShard(ctx, shardConfig)
		if err != nil {
			return fmt.Errorf("failed to create shard %d: %w", shardConfig.ShardID, err)
		}
		s.shards.Store(shardConfig.ShardID, shard)
		log.Infof("created %s shard %d on %s backend", shardConfig.Type, shardConfig.ShardID, s.config.Backend)
	}

	if mt, ok := s.transport.(transport.IRPCMetricsTransport); ok {
		s.shards.Range(func(_ uint64, shard *serverShard) bool {
			if shard.Metrics != nil {
				mt.RegisterMetricSet(shard.Metrics)
			}
			return true
		})
	}
	s.transport.RegisterHandler(s.handle)
	log.Infof("bKV setup completed successfully")
	return nil
}

// createShard opens the engine of a shard and puts the configured store in front of it
func (s *RPCServer) createShard(ctx context.Context, shardConfig common.ServerShard) (*serverShard, error) {
	database, err := s.openDB(ctx, shardConfig.ShardID)
	if err != nil {
		return nil, err
	}

	shard := &serverShard{
		DB:      database,
		Adapter: NewIStoreServerAdapter(),
	}

	switch shardConfig.Type {
	case common.ShardTypeDebounced:
		set := metrics.NewSet()
		shard.Metrics = set
		st := dstore.NewDebouncedStore(database, &dstore.Options{
			Debounce:     s.config.Debounce(),
			Name:         fmt.Sprintf("shard-%d", shardConfig.ShardID),
			Metrics:      set,
			WriteTimeout: s.config.Timeout(),
		})
		shard.Store = st
		shard.close = st.Close
	case common.ShardTypeWriteThrough:
		st := lstore.NewLocalStore(database)
		shard.Store = st
		shard.close = st.FlushAll
	default:
		_ = database.Close()
		return nil, fmt.Errorf("invalid shard type: %s", shardConfig.Type)
	}
	return shard, nil
}

// openDB opens the engine of a shard. Every shard gets its own file directory,
// sqlite file or postgres table.
func (s *RPCServer) openDB(ctx context.Context, shardId uint64) (db.KVDB, error) {
	switch s.config.Backend {
	case common.BackendMemory:
		return memory.NewMemoryDB(), nil
	case common.BackendFile:
		return file.NewFileDB(&file.DBOptions{
			Dir:      filepath.Join(s.config.DataDir, fmt.Sprintf("shard-%d", shardId)),
			Compress: s.config.Compress,
		})
	case common.BackendSQLite:
		if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return sqlite.NewSQLiteDB(filepath.Join(s.config.DataDir, fmt.Sprintf("shard-%d.db", shardId)))
	case common.BackendPostgres:
		return postgres.NewPostgresDB(ctx, postgres.DBOptions{
			DSN:   s.config.PostgresDSN,
			Table: fmt.Sprintf("bkv_shard_%d", shardId),
		})
	default:
		return nil, fmt.Errorf("invalid backend: %s", s.config.Backend)
	}
}

// shutdown flushes and closes every shard
func (s *RPCServer) shutdown() error {
	timeout := s.config.Timeout()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	s.shards.Range(func(id uint64, shard *serverShard) bool {
		for _, result := range shard.close(ctx) {
			if !result.Ok() {
				errs = append(errs, fmt.Errorf("shard %d: %s", id, result))
			}
		}
		if err := shard.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("shard %d: failed to close database: %w", id, err))
		}
		s.shards.Delete(id)
		log.Infof("closed shard %d", id)
		return true
	})
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Request Handling
// --------------------------------------------------------------------------

// handle is the transport handler: decode, dispatch to the shard, encode
func (s *RPCServer) handle(ctx context.Context, shardId uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	shard, ok := s.shards.Load(shardId)
	if !ok {
		respMsg = common.NewErrorResponse(fmt.Sprintf("shard %d not found", shardId))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		respMsg = shard.Adapter.Handle(ctx, &msg, shard.Store, shard.DB)
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		log.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}
