package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WrapsTotal tracks wrap operations by outcome
	WrapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crucible_wraps_total",
			Help: "The total number of wrap operations",
		},
		[]string{"status"}, // success, failed
	)

	// UnwrapsTotal tracks unwrap operations by outcome
	UnwrapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crucible_unwraps_total",
			Help: "The total number of unwrap operations",
		},
		[]string{"status"},
	)

	// ExchangeRate tracks the current exchange rate per vault
	ExchangeRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crucible_exchange_rate",
			Help: "Current receipt token exchange rate per vault",
		},
		[]string{"vault"},
	)

	// FeesAccruedTotal tracks vault-share fee revenue by source
	FeesAccruedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crucible_fees_accrued_total",
			Help: "Base units of fee revenue accrued to vaults",
		},
		[]string{"source"},
	)

	// PositionsOpen tracks open positions by kind
	PositionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crucible_positions_open",
			Help: "The number of currently open positions",
		},
		[]string{"kind"},
	)

	// PoolUtilization tracks lending pool utilization
	PoolUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crucible_pool_utilization",
		Help: "Lending pool utilization ratio (0-1)",
	})

	// LiquidationsTotal tracks liquidations by outcome
	LiquidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crucible_liquidations_total",
			Help: "The total number of liquidation attempts",
		},
		[]string{"status"}, // executed, refused, failed
	)

	// SweepQueueLength tracks at-risk positions awaiting a health check
	SweepQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crucible_sweep_queue_length",
		Help: "The number of positions currently in the liquidation sweep queue",
	})

	// WorkersActive tracks the number of active sweep workers
	WorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crucible_sweep_workers_active",
		Help: "The number of sweep workers currently active",
	})

	// SweepSeconds tracks time taken for a full health sweep
	SweepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crucible_health_sweep_seconds",
		Help:    "Time taken for one full health sweep in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// OracleEndpointHealth tracks health of each price oracle endpoint
	OracleEndpointHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crucible_oracle_endpoint_healthy",
			Help: "Whether each oracle endpoint is healthy (1) or not (0)",
		},
		[]string{"endpoint"},
	)

	// DatabaseOperations tracks database operations
	DatabaseOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crucible_database_operations_total",
			Help: "The total number of database operations",
		},
		[]string{"operation", "status"},
	)
)

// RecordWrap records a wrap operation with the given status
func RecordWrap(status string) {
	WrapsTotal.WithLabelValues(status).Inc()
}

// RecordUnwrap records an unwrap operation with the given status
func RecordUnwrap(status string) {
	UnwrapsTotal.WithLabelValues(status).Inc()
}

// SetExchangeRate sets the exchange rate gauge for a vault
func SetExchangeRate(vault string, rate float64) {
	ExchangeRate.WithLabelValues(vault).Set(rate)
}

// RecordFeeAccrued records vault-share fee revenue from a source
func RecordFeeAccrued(source string, amount float64) {
	FeesAccruedTotal.WithLabelValues(source).Add(amount)
}

// RecordLiquidation records a liquidation attempt
func RecordLiquidation(status string) {
	LiquidationsTotal.WithLabelValues(status).Inc()
}

// SetOracleEndpointHealth records the health status of an oracle endpoint
func SetOracleEndpointHealth(endpoint string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	OracleEndpointHealth.WithLabelValues(endpoint).Set(value)
}

// RecordDatabaseOperation records a database operation
func RecordDatabaseOperation(operation, status string) {
	DatabaseOperations.WithLabelValues(operation, status).Inc()
}
