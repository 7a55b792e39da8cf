package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts bridge runs by direction and final status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cknft_bridge_runs_total",
			Help: "Total number of bridge runs",
		},
		[]string{"direction", "status"},
	)

	// RunsInFlight tracks currently executing bridge runs
	RunsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cknft_bridge_runs_in_flight",
			Help: "Number of bridge runs currently executing",
		},
	)

	// StepsTotal counts step executions by step id and outcome
	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cknft_bridge_steps_total",
			Help: "Total number of step executions",
		},
		[]string{"step", "outcome"},
	)

	// StepDuration tracks step execution time
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cknft_bridge_step_duration_seconds",
			Help:    "Step execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// AssetsBridged counts assets by direction and outcome
	AssetsBridged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cknft_bridge_assets_total",
			Help: "Total number of assets processed",
		},
		[]string{"direction", "outcome"},
	)

	// PollAttempts tracks how many attempts each mint/cast poll loop used
	PollAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cknft_bridge_poll_attempts",
			Help:    "Poll attempts used before a terminal or still-pending outcome",
			Buckets: []float64{1, 2, 3, 5, 10, 15, 20, 25, 30},
		},
		[]string{"outcome"},
	)

	// GasUsed tracks gas used for source-chain transactions
	GasUsed = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cknft_bridge_gas_used",
			Help:    "Gas used for source-chain transactions",
			Buckets: []float64{21000, 50000, 100000, 150000, 300000, 500000},
		},
		[]string{"operation"},
	)

	// LedgerErrors counts typed ledger service errors by kind
	LedgerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cknft_bridge_ledger_errors_total",
			Help: "Total number of ledger service errors by kind",
		},
		[]string{"kind"},
	)
)
