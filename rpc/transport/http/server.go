package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/ValentinKolb/bKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("transport/rpc")

// maxBodyBytes limits the size of a single request
const maxBodyBytes = 64 << 20

// shutdownGrace is how long in-flight requests may run after Listen's ctx is canceled
const shutdownGrace = 10 * time.Second

// NewHttpServerTransport creates a server transport.
// Routes:
//
//	POST /{shardId}  rpc request, body and response are serialized messages
//	GET  /healthz    liveness probe
//	GET  /metrics    prometheus metrics of all registered metric sets
func NewHttpServerTransport() transport.IRPCServerTransport {
	return &httpServerTransport{}
}

type httpServerTransport struct {
	handler transport.ServerHandleFunc

	mu   sync.Mutex
	sets []*metrics.Set
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *httpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *httpServerTransport) RegisterMetricSet(set *metrics.Set) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets = append(t.sets, set)
}

func (t *httpServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	server := &http.Server{
		Addr:              config.Transport.Endpoint,
		Handler:           t.router(config.LogLevel == "debug"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting HTTP server on %s", config.Transport.Endpoint)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("Shutting down HTTP server on %s", config.Transport.Endpoint)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// router builds the chi router, with debug set every request is logged
func (t *httpServerTransport) router(debug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if debug {
		r.Use(loggerMiddleware)
	}

	r.Post("/{shardId}", t.handleRequest)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", t.handleMetrics)
	return r
}

// handleMetrics writes the default metrics followed by every registered set
func (t *httpServerTransport) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)

	t.mu.Lock()
	sets := append([]*metrics.Set(nil), t.sets...)
	t.mu.Unlock()
	for _, set := range sets {
		set.WritePrometheus(w)
	}
}

// handleRequest handles incoming HTTP requests and writes the response to the writer
func (t *httpServerTransport) handleRequest(w http.ResponseWriter, r *http.Request) {
	shardId, err := strconv.ParseUint(chi.URLParam(r, "shardId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid shardId", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	_ = r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	resp := t.handler(r.Context(), shardId, body)

	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err = w.Write(resp); err != nil {
		log.Warningf("Failed to write response for shard %d: %v", shardId, err)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// loggerMiddleware logs method, path, status and duration of every request
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Debugf("%s %s => %d (%d bytes) took %s", r.Method, r.URL.Path, status, ww.BytesWritten(), time.Since(start))
	})
}
