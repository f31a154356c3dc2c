package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and allocation activity.
type MetricsService struct {
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	batchTotal     *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	courseResults  *prometheus.CounterVec
	seatsAllocated prometheus.Counter
	seatsWasted    prometheus.Counter
	lockWait       *prometheus.HistogramVec
	eventsTotal    *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	batchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_batches_total",
		Help: "Allocation batches by strategy and outcome",
	}, []string{"strategy", "outcome"})

	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_batch_duration_seconds",
		Help:    "Time spent planning and persisting an allocation batch",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	courseResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_course_results_total",
		Help: "Per-course allocation outcomes in committed batches",
	}, []string{"result"})

	seatsAllocated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_seats_assigned_total",
		Help: "Participants seated by committed batches",
	})

	seatsWasted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_seats_wasted_total",
		Help: "Unused seats left in rooms chosen by committed batches",
	})

	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_slot_lock_wait_seconds",
		Help:    "Time spent waiting for the per-slot lock",
		Buckets: prometheus.DefBuckets,
	}, []string{"acquired"})

	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_events_total",
		Help: "Allocation events handed to the publisher",
	}, []string{"type", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		batchTotal, batchDuration, courseResults, seatsAllocated, seatsWasted, lockWait, eventsTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		batchTotal:      batchTotal,
		batchDuration:   batchDuration,
		courseResults:   courseResults,
		seatsAllocated:  seatsAllocated,
		seatsWasted:     seatsWasted,
		lockWait:        lockWait,
		eventsTotal:     eventsTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSlotLock records how long a batch waited for its slot lock.
func (m *MetricsService) ObserveSlotLock(acquired bool, wait time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(fmt.Sprintf("%t", acquired)).Observe(wait.Seconds())
}

// ObserveAllocationBatch records the outcome of an allocation batch.
func (m *MetricsService) ObserveAllocationBatch(strategy, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.batchTotal.WithLabelValues(strategy, outcome).Inc()
	m.batchDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordCourseResults adds the per-course counters of a committed batch.
func (m *MetricsService) RecordCourseResults(succeeded, failed, seated, wasted int) {
	if m == nil {
		return
	}
	m.courseResults.WithLabelValues("success").Add(float64(succeeded))
	m.courseResults.WithLabelValues("failure").Add(float64(failed))
	m.seatsAllocated.Add(float64(seated))
	m.seatsWasted.Add(float64(wasted))
}

// RecordEvent counts an allocation event outcome.
func (m *MetricsService) RecordEvent(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, status).Inc()
}
