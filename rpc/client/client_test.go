package client

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/bKV/lib/db"
	dbtesting "github.com/ValentinKolb/bKV/lib/db/testing"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/serializer"
	"github.com/ValentinKolb/bKV/rpc/server"
	"github.com/ValentinKolb/bKV/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	writeThroughShards = 16
	debouncedShard     = 100
)

// startServer runs a server with write-through shards 1..16 and one debounced
// shard on a free local port and returns its endpoint
func startServer(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := l.Addr().String()
	require.NoError(t, l.Close())

	config := common.ServerConfig{
		Backend:       common.BackendMemory,
		DebounceMs:    int64(time.Hour / time.Millisecond),
		TimeoutSecond: 5,
		Transport:     common.TransportConfig{Endpoint: endpoint},
	}
	for id := uint64(1); id <= writeThroughShards; id++ {
		config.Shards = append(config.Shards, common.ServerShard{ShardID: id, Type: common.ShardTypeWriteThrough})
	}
	config.Shards = append(config.Shards, common.ServerShard{ShardID: debouncedShard, Type: common.ShardTypeDebounced})

	srv := server.NewRPCServer(config, http.NewHttpServerTransport(), serializer.NewBinarySerializer())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("server did not shut down")
		}
	})

	// wait until the server answers
	probe := connect(t, endpoint, 1)
	require.Eventually(t, func() bool {
		_, err := probe.PendingCount(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	return endpoint
}

func connect(t testing.TB, endpoint string, shard uint64) *RPCDB {
	t.Helper()
	c, err := NewRPCDB(shard, common.ClientConfig{
		Endpoints:     []string{endpoint},
		TimeoutSecond: 5,
		RetryCount:    1,
	}, http.NewHttpClientTransport(), serializer.NewBinarySerializer())
	require.NoError(t, err)
	return c
}

func TestRPCDB(t *testing.T) {
	endpoint := startServer(t)

	// every database of the suite gets a fresh shard
	var next atomic.Uint64
	dbtesting.RunKVDBTests(t, "RPCDB", func() db.KVDB {
		id := next.Add(1)
		require.LessOrEqual(t, id, uint64(writeThroughShards), "not enough shards for the suite")
		return connect(t, endpoint, id)
	})
}

func TestRPCDBFlushControl(t *testing.T) {
	endpoint := startServer(t)
	c := connect(t, endpoint, debouncedShard)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1"))
	require.NoError(t, c.Set(ctx, "a", "2"))
	require.NoError(t, c.Set(ctx, "b", "1"))

	pending, err := c.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Pending)
	assert.Equal(t, db.ImplMemory, info.DB.DbType)

	written, failed, err := c.FlushAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Empty(t, failed)

	pending, err = c.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	val, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", val)
}

func TestRPCDBUnknownShard(t *testing.T) {
	endpoint := startServer(t)
	c := connect(t, endpoint, 4242)
	defer c.Close()

	_, _, err := c.Get(context.Background(), "k")
	assert.ErrorContains(t, err, "not found")

	info := c.GetInfo()
	assert.Equal(t, db.ImplRemote, info.DbType)
	assert.Contains(t, info.Metadata, "error")
}

func TestRPCDBUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := l.Addr().String()
	require.NoError(t, l.Close())

	c := connect(t, endpoint, 1)
	defer c.Close()
	assert.Error(t, c.Set(context.Background(), "k", "v"))
}
