package server

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/bKV/lib/db/engines/file"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/serializer"
	"github.com/ValentinKolb/bKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport blocks in Listen until ctx is canceled and exposes the handler
type fakeTransport struct {
	handler transport.ServerHandleFunc
	sets    []*metrics.Set
	ready   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ready: make(chan struct{})}
}

func (f *fakeTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	f.handler = handler
}

func (f *fakeTransport) RegisterMetricSet(set *metrics.Set) {
	f.sets = append(f.sets, set)
}

func (f *fakeTransport) Listen(ctx context.Context, _ common.ServerConfig) error {
	close(f.ready)
	<-ctx.Done()
	return nil
}

func testConfig(backend common.Backend, dir string) common.ServerConfig {
	return common.ServerConfig{
		Shards: []common.ServerShard{
			{ShardID: 1, Type: common.ShardTypeDebounced},
			{ShardID: 2, Type: common.ShardTypeWriteThrough},
		},
		Backend:       backend,
		DataDir:       dir,
		DebounceMs:    int64(time.Hour / time.Millisecond),
		TimeoutSecond: 5,
		Transport:     common.TransportConfig{Endpoint: "unused"},
	}
}

// call sends msg to shard through the registered handler
func call(t *testing.T, handler transport.ServerHandleFunc, shard uint64, msg *common.Message) common.Message {
	t.Helper()
	s := serializer.NewBinarySerializer()
	req, err := s.Serialize(*msg)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.Deserialize(handler(context.Background(), shard, req), &resp))
	return resp
}

func startServer(t *testing.T, config common.ServerConfig) (*fakeTransport, context.CancelFunc, <-chan error) {
	t.Helper()
	ft := newFakeTransport()
	srv := NewRPCServer(config, ft, serializer.NewBinarySerializer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	select {
	case <-ft.ready:
	case err := <-done:
		t.Fatalf("Serve returned early: %v", err)
	}
	t.Cleanup(cancel)
	return ft, cancel, done
}

func TestDebouncedShard(t *testing.T) {
	ft, _, _ := startServer(t, testConfig(common.BackendMemory, ""))

	resp := call(t, ft.handler, 1, common.NewSetItemRequest("k", []byte("v1")))
	assert.Empty(t, resp.Err)
	call(t, ft.handler, 1, common.NewSetItemRequest("k", []byte("v2")))

	resp = call(t, ft.handler, 1, common.NewGetItemRequest("k"))
	assert.True(t, resp.Ok)
	assert.Equal(t, "v2", string(resp.Value))

	resp = call(t, ft.handler, 1, common.NewPendingRequest())
	assert.EqualValues(t, 1, resp.Count)

	resp = call(t, ft.handler, 1, common.NewFlushRequest())
	assert.Empty(t, resp.Err)
	assert.EqualValues(t, 1, resp.Count)

	resp = call(t, ft.handler, 1, common.NewPendingRequest())
	assert.EqualValues(t, 0, resp.Count)

	call(t, ft.handler, 1, common.NewRemoveItemRequest("k"))
	resp = call(t, ft.handler, 1, common.NewGetItemRequest("k"))
	assert.False(t, resp.Ok)
}

func TestShardMetrics(t *testing.T) {
	ft, _, _ := startServer(t, testConfig(common.BackendMemory, ""))

	// only the debounced shard has a metric set
	require.Len(t, ft.sets, 1)

	call(t, ft.handler, 1, common.NewSetItemRequest("k", []byte("v")))
	var buf bytes.Buffer
	ft.sets[0].WritePrometheus(&buf)
	assert.Contains(t, buf.String(), `bkv_store_pending{store="shard-1"} 1`)
	assert.Contains(t, buf.String(), `bkv_store_set_total{store="shard-1"} 1`)
}

func TestWriteThroughShard(t *testing.T) {
	ft, _, _ := startServer(t, testConfig(common.BackendMemory, ""))

	call(t, ft.handler, 2, common.NewSetItemRequest("k", []byte("v")))
	resp := call(t, ft.handler, 2, common.NewPendingRequest())
	assert.EqualValues(t, 0, resp.Count)

	resp = call(t, ft.handler, 2, common.NewInfoRequest())
	assert.Empty(t, resp.Err)
	assert.Contains(t, string(resp.Meta), `"db_type":"memory"`)
}

func TestUnknownShardAndMessage(t *testing.T) {
	ft, _, _ := startServer(t, testConfig(common.BackendMemory, ""))

	resp := call(t, ft.handler, 99, common.NewGetItemRequest("k"))
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Contains(t, resp.Err, "not found")

	resp = call(t, ft.handler, 1, &common.Message{MsgType: common.MsgTSuccess})
	assert.Equal(t, common.MsgTError, resp.MsgType)

	var bad common.Message
	s := serializer.NewBinarySerializer()
	require.NoError(t, s.Deserialize(ft.handler(context.Background(), 1, []byte{1}), &bad))
	assert.Contains(t, bad.Err, "deserialize")
}

func TestShutdownFlushesPendingWrites(t *testing.T) {
	dir := t.TempDir()
	ft, cancel, done := startServer(t, testConfig(common.BackendFile, dir))

	call(t, ft.handler, 1, common.NewSetItemRequest("toonnotes-notes", []byte(`{"version":1}`)))
	resp := call(t, ft.handler, 1, common.NewPendingRequest())
	require.EqualValues(t, 1, resp.Count)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}

	database, err := file.NewFileDB(&file.DBOptions{Dir: dir + "/shard-1"})
	require.NoError(t, err)
	val, ok, err := database.Get(context.Background(), "toonnotes-notes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"version":1}`, val)
}

func TestInvalidConfig(t *testing.T) {
	config := testConfig(common.BackendMemory, "")
	config.Shards = nil

	err := NewRPCServer(config, newFakeTransport(), serializer.NewBinarySerializer()).Serve(context.Background())
	assert.Error(t, err)
}
