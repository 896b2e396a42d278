package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the contest engine.
type Metrics struct {
	// --- Contest lifecycle ---
	ContestTransitions *prometheus.CounterVec
	ContestsByStatus   *prometheus.GaugeVec
	ParticipantJoins   prometheus.Counter
	ParticipantLeaves  prometheus.Counter

	// --- Trading ---
	TradesOpened   prometheus.Counter
	TradesClosed   *prometheus.CounterVec
	TradesRejected *prometheus.CounterVec

	// --- Concurrency ---
	VersionConflicts *prometheus.CounterVec
	MutationRetries  prometheus.Histogram

	// --- Settlement ---
	SettlementsCompleted prometheus.Counter
	SettlementsFailed    prometheus.Counter
	SettlementDuration   prometheus.Histogram
	PrizesPaid           prometheus.Counter
	PrizeAmountPaid      prometheus.Counter
	RefundsIssued        prometheus.Counter

	// --- Scheduler ---
	SweepDuration prometheus.Histogram
	SweepContests prometheus.Gauge

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	RateLimited  prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	durationBuckets := []float64{
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
	}

	return &Metrics{
		ContestTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_status_transitions_total",
			Help: "Lifecycle transitions applied, by target status",
		}, []string{"to"}),

		ContestsByStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contest_contests",
			Help: "Contests currently in each lifecycle status",
		}, []string{"status"}),

		ParticipantJoins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_participant_joins_total",
			Help: "Successful contest joins",
		}),

		ParticipantLeaves: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_participant_leaves_total",
			Help: "Successful contest leaves",
		}),

		TradesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_trades_opened_total",
			Help: "Trades opened across all contests",
		}),

		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_trades_closed_total",
			Help: "Trades closed, by trigger (user, settlement)",
		}, []string{"trigger"}),

		TradesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_trades_rejected_total",
			Help: "Trade attempts rejected, by error kind",
		}, []string{"kind"}),

		VersionConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_version_conflicts_total",
			Help: "Optimistic concurrency conflicts, by operation",
		}, []string{"operation"}),

		MutationRetries: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contest_mutation_retries",
			Help:    "Retry attempts needed per contest mutation",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		}),

		SettlementsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_settlements_completed_total",
			Help: "Contests settled to COMPLETED",
		}),

		SettlementsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_settlements_failed_total",
			Help: "Settlement attempts that returned an error",
		}),

		SettlementDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contest_settlement_duration_seconds",
			Help:    "Wall time of one settlement run",
			Buckets: durationBuckets,
		}),

		PrizesPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_prizes_paid_total",
			Help: "Individual prize payouts completed",
		}),

		PrizeAmountPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_prize_amount_paid_cents_total",
			Help: "Total prize money paid, in cents",
		}),

		RefundsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_refunds_issued_total",
			Help: "Entry fee refunds completed",
		}),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "contest_scheduler_sweep_duration_seconds",
			Help:    "Wall time of one scheduler sweep",
			Buckets: durationBuckets,
		}),

		SweepContests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "contest_scheduler_sweep_contests",
			Help: "Contests examined by the last sweep",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "contest_http_requests_total",
			Help: "HTTP requests, by route and status code",
		}, []string{"route", "code"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contest_http_request_duration_seconds",
			Help:    "HTTP request latency, by route",
			Buckets: durationBuckets,
		}, []string{"route"}),

		RateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "contest_http_rate_limited_total",
			Help: "Requests rejected by the per-user rate limiter",
		}),
	}
}
