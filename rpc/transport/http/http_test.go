package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer starts a test server whose handler answers "<shardId>:<body>"
func echoServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := &atomic.Int32{}
	srv := &httpServerTransport{}
	srv.RegisterHandler(func(_ context.Context, shardId uint64, req []byte) []byte {
		calls.Add(1)
		return []byte(fmt.Sprintf("%d:%s", shardId, req))
	})
	ts := httptest.NewServer(srv.router(true))
	t.Cleanup(ts.Close)
	return ts, calls
}

func connect(t *testing.T, retries int, endpoints ...string) *httpClientTransport {
	t.Helper()
	c := NewHttpClientTransport().(*httpClientTransport)
	require.NoError(t, c.Connect(common.ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: 5,
		RetryCount:    retries,
	}))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSendRoundTrip(t *testing.T) {
	ts, calls := echoServer(t)
	c := connect(t, 0, ts.URL)

	resp, err := c.Send(context.Background(), 7, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "7:hello", string(resp))
	assert.EqualValues(t, 1, calls.Load())
}

func TestEndpointWithoutScheme(t *testing.T) {
	ts, _ := echoServer(t)
	c := connect(t, 0, strings.TrimPrefix(ts.URL, "http://"))

	resp, err := c.Send(context.Background(), 1, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "1:x", string(resp))
}

func TestInvalidShardId(t *testing.T) {
	ts, calls := echoServer(t)

	resp, err := http.Post(ts.URL+"/not-a-number", "application/octet-stream", strings.NewReader("x"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.EqualValues(t, 0, calls.Load())
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := echoServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricSets(t *testing.T) {
	srv := &httpServerTransport{}
	srv.RegisterHandler(func(context.Context, uint64, []byte) []byte { return nil })

	first, second := metrics.NewSet(), metrics.NewSet()
	first.NewCounter(`shard_writes_total{shard="1"}`).Add(3)
	second.NewCounter(`shard_writes_total{shard="2"}`).Inc()
	srv.RegisterMetricSet(first)
	srv.RegisterMetricSet(second)

	ts := httptest.NewServer(srv.router(false))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), `shard_writes_total{shard="1"} 3`)
	assert.Contains(t, string(body), `shard_writes_total{shard="2"} 1`)
}

func TestRetryNextEndpoint(t *testing.T) {
	ts, calls := echoServer(t)

	// a listener that is closed right away gives a refused endpoint
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	dead := "http://" + l.Addr().String()
	require.NoError(t, l.Close())

	c := connect(t, 1, dead, ts.URL)
	for i := 0; i < 4; i++ {
		resp, err := c.Send(context.Background(), 2, []byte("retry"))
		require.NoError(t, err)
		assert.Equal(t, "2:retry", string(resp))
	}
	assert.EqualValues(t, 4, calls.Load())
}

func TestSendServerError(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer failing.Close()

	c := connect(t, 2, failing.URL)
	_, err := c.Send(context.Background(), 1, []byte("x"))
	assert.ErrorContains(t, err, "500")
}

func TestSendCanceled(t *testing.T) {
	ts, calls := echoServer(t)
	c := connect(t, 3, ts.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Send(ctx, 1, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 0, calls.Load())
}

func TestSendNotConnected(t *testing.T) {
	_, err := NewHttpClientTransport().Send(context.Background(), 1, nil)
	assert.Error(t, err)
}

func TestConnectNoEndpoints(t *testing.T) {
	assert.Error(t, NewHttpClientTransport().Connect(common.ClientConfig{}))
}

func TestListenShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	srv := NewHttpServerTransport()
	srv.RegisterHandler(func(_ context.Context, _ uint64, req []byte) []byte { return req })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(ctx, common.ServerConfig{Transport: common.TransportConfig{Endpoint: addr}})
	}()

	c := connect(t, 0, addr)
	require.Eventually(t, func() bool {
		resp, err := c.Send(context.Background(), 1, []byte("up"))
		return err == nil && string(resp) == "up"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestListenWithoutHandler(t *testing.T) {
	err := NewHttpServerTransport().Listen(context.Background(), common.ServerConfig{})
	assert.Error(t, err)
}
