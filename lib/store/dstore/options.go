package dstore

import (
	"time"

	"github.com/ValentinKolb/bKV/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

// DefaultDebounce is the quiet period after the last write before a key is persisted
const DefaultDebounce = 500 * time.Millisecond

// Options configures a debounced store
type Options struct {
	// Debounce is the quiet period per key. Zero means DefaultDebounce.
	Debounce time.Duration

	// Available reports whether persistent storage can be used in the current
	// environment. While it returns false every operation is a no-op and reads
	// report nothing found. Nil means always available.
	Available func() bool

	// Scheduler runs the delayed commits. Nil means NewTimerScheduler().
	Scheduler Scheduler

	// Name labels the metrics of this store. Empty means "default".
	Name string

	// Metrics receives the metrics of this store. Nil means a new private set.
	Metrics *metrics.Set

	// WriteTimeout bounds every durable operation started by a timer. Zero means no timeout.
	WriteTimeout time.Duration

	// FlushConcurrency limits the parallel writes of FlushAll. Zero means 16.
	FlushConcurrency int

	// OnResult is called after every durable operation, outside of any lock.
	OnResult func(store.FlushResult)
}

// DefaultOptions returns the default options
func DefaultOptions() *Options {
	return &Options{
		Debounce:         DefaultDebounce,
		Name:             "default",
		FlushConcurrency: 16,
	}
}

// withDefaults returns a copy of o with every unset field filled in
func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		out.Scheduler = NewTimerScheduler()
		out.Metrics = metrics.NewSet()
		return out
	}

	out = *o
	if out.Debounce <= 0 {
		out.Debounce = DefaultDebounce
	}
	if out.Scheduler == nil {
		out.Scheduler = NewTimerScheduler()
	}
	if out.Name == "" {
		out.Name = "default"
	}
	if out.Metrics == nil {
		out.Metrics = metrics.NewSet()
	}
	if out.FlushConcurrency <= 0 {
		out.FlushConcurrency = 16
	}
	return out
}
