package middleware

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Metrics stores processor counters
type Metrics struct {
	BatchesTotal   uint64
	ScansProcessed uint64
	ScansSucceeded uint64
	ScansFailed    uint64
	ScansSkipped   uint64
	StartTime      time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

// RecordBatch folds one batch outcome into the counters.
func RecordBatch(processed, succeeded, failed, skipped int) {
	atomic.AddUint64(&globalMetrics.BatchesTotal, 1)
	atomic.AddUint64(&globalMetrics.ScansProcessed, uint64(processed))
	atomic.AddUint64(&globalMetrics.ScansSucceeded, uint64(succeeded))
	atomic.AddUint64(&globalMetrics.ScansFailed, uint64(failed))
	atomic.AddUint64(&globalMetrics.ScansSkipped, uint64(skipped))
}

// MetricsHandler exposes the counters as JSON.
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]any{
		"batches_total":   atomic.LoadUint64(&globalMetrics.BatchesTotal),
		"scans_processed": atomic.LoadUint64(&globalMetrics.ScansProcessed),
		"scans_succeeded": atomic.LoadUint64(&globalMetrics.ScansSucceeded),
		"scans_failed":    atomic.LoadUint64(&globalMetrics.ScansFailed),
		"scans_skipped":   atomic.LoadUint64(&globalMetrics.ScansSkipped),
		"uptime_seconds":  int(time.Since(globalMetrics.StartTime).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}
