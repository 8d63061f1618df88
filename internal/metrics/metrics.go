// Package metrics declares Prometheus collectors for the round engine and
// tournament controller (spec's ambient stack; Non-goals exclude an
// external telemetry *webhook*, not in-process metrics). No other package
// in this module imports or updates them. Grounded on the
// teacher's internal/fraud/metrics.go promauto.NewCounterVec/HistogramVec
// package-global style, renamed from fraud-detection metrics to
// round/settlement/timeout/bracket metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoundsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_rounds_started_total",
		Help: "Total number of rounds dealt, by mode",
	}, []string{"mode"})

	RoundsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_rounds_settled_total",
		Help: "Total number of rounds settled, by mode",
	}, []string{"mode"})

	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cardhall_settlement_duration_seconds",
		Help:    "Time from round start to settlement",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})

	TurnTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_turn_timeouts_total",
		Help: "Total number of turn-clock expirations that triggered an auto-action",
	}, []string{"mode"})

	ActiveChannels = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cardhall_active_channels",
		Help: "Number of currently registered channels, by mode",
	}, []string{"mode"})

	WalletDebitsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_wallet_debits_rejected_total",
		Help: "Total number of wallet debits rejected for insufficient funds",
	}, []string{"reason"})

	TournamentBracketsAdvanced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_tournament_rounds_advanced_total",
		Help: "Total number of tournament rounds that advanced to the next bracket",
	}, []string{"tournament_id"})

	TournamentEliminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardhall_tournament_eliminations_total",
		Help: "Total number of players eliminated from a tournament",
	}, []string{"tournament_id"})
)
