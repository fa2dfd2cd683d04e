package dstore

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

type storeMetrics struct {
	sets        *metrics.Counter
	coalesced   *metrics.Counter
	writes      *metrics.Counter
	writeErrors *metrics.Counter
	superseded  *metrics.Counter
	removes     *metrics.Counter
	readErrors  *metrics.Counter
	writeTime   *metrics.Histogram
}

func metricName(name, store string) string {
	return fmt.Sprintf("%s{store=%q}", name, store)
}

// newStoreMetrics registers the metrics of one store in set.
// pending is read whenever the set is written out.
func newStoreMetrics(set *metrics.Set, store string, pending func() float64) *storeMetrics {
	set.NewGauge(metricName("bkv_store_pending", store), pending)

	return &storeMetrics{
		sets:        set.NewCounter(metricName("bkv_store_set_total", store)),
		coalesced:   set.NewCounter(metricName("bkv_store_coalesced_total", store)),
		writes:      set.NewCounter(metricName("bkv_store_writes_total", store)),
		writeErrors: set.NewCounter(metricName("bkv_store_write_errors_total", store)),
		superseded:  set.NewCounter(metricName("bkv_store_superseded_total", store)),
		removes:     set.NewCounter(metricName("bkv_store_removes_total", store)),
		readErrors:  set.NewCounter(metricName("bkv_store_read_errors_total", store)),
		writeTime:   set.NewHistogram(metricName("bkv_store_write_duration_seconds", store)),
	}
}
