package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application counters. All fields are updated atomically.
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	ScansTotal         uint64
	ScansRunning       uint64
	ScansFailed        uint64
	RemediationsTotal  uint64
	FindingsDetected   uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{StartTime: time.Now()}

func IncrementRequests() { atomic.AddUint64(&globalMetrics.RequestsTotal, 1) }

func IncrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, 1) }

func DecrementInProgress() { atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0)) }

func IncrementSuccess() { atomic.AddUint64(&globalMetrics.RequestsSuccess, 1) }

func IncrementFailed() { atomic.AddUint64(&globalMetrics.RequestsFailed, 1) }

// IncrementScans counts one triggered privacy scan
func IncrementScans() { atomic.AddUint64(&globalMetrics.ScansTotal, 1) }

func IncrementScansRunning() { atomic.AddUint64(&globalMetrics.ScansRunning, 1) }

func DecrementScansRunning() { atomic.AddUint64(&globalMetrics.ScansRunning, ^uint64(0)) }

func IncrementScansFailed() { atomic.AddUint64(&globalMetrics.ScansFailed, 1) }

// IncrementRemediations counts one applied remediation batch
func IncrementRemediations() { atomic.AddUint64(&globalMetrics.RemediationsTotal, 1) }

// AddFindings counts detected PII findings
func AddFindings(n int) {
	if n > 0 {
		atomic.AddUint64(&globalMetrics.FindingsDetected, uint64(n))
	}
}

// GetMetrics returns the current counters plus runtime stats
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"scans_total":          atomic.LoadUint64(&globalMetrics.ScansTotal),
		"scans_running":        atomic.LoadUint64(&globalMetrics.ScansRunning),
		"scans_failed":         atomic.LoadUint64(&globalMetrics.ScansFailed),
		"remediations_total":   atomic.LoadUint64(&globalMetrics.RemediationsTotal),
		"findings_detected":    atomic.LoadUint64(&globalMetrics.FindingsDetected),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks per-request counters
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler serves the counters as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}
