package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Indexing metrics
	LastIndexedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loanindexor_last_indexed_block",
			Help: "The last block height successfully indexed",
		},
	)

	BlocksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loanindexor_blocks_indexed_total",
			Help: "Total number of blocks forward-indexed",
		},
	)

	BlocksInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loanindexor_blocks_invalidated_total",
			Help: "Total number of blocks rolled back due to reorgs",
		},
	)

	TxsIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanindexor_txs_indexed_total",
			Help: "Total number of domain transactions indexed by op code",
		},
		[]string{"op"},
	)

	SchemesPromoted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loanindexor_loan_schemes_promoted_total",
			Help: "Total number of deferred loan schemes promoted to current",
		},
	)

	BlockProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loanindexor_block_processing_duration_seconds",
			Help:    "Time taken to process a block",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)

	// Read-model metrics
	VaultQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanindexor_vault_queries_total",
			Help: "Total number of vault read-model queries by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loanindexor_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loanindexor_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loanindexor_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loanindexor_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "loanindexor_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func LastIndexedBlockSet(height uint64) {
	LastIndexedBlock.Set(float64(height))
}

func BlocksIndexedInc() {
	BlocksIndexed.Inc()
}

func BlocksInvalidatedInc() {
	BlocksInvalidated.Inc()
}

func TxsIndexedInc(op string) {
	TxsIndexed.WithLabelValues(op).Inc()
}

func SchemesPromotedAdd(count int) {
	SchemesPromoted.Add(float64(count))
}

func BlockProcessingTimeLog(direction string, duration time.Duration) {
	BlockProcessingTime.WithLabelValues(direction).Observe(duration.Seconds())
}

func VaultQueryInc(operation, outcome string) {
	VaultQueries.WithLabelValues(operation, outcome).Inc()
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
