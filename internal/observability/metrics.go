// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Token operation metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	ConfirmLatency prometheus.Histogram

	// Session metrics
	SessionBalance   prometheus.Gauge
	BalanceRefreshes *prometheus.CounterVec
	AirdropsTotal    *prometheus.CounterVec
	WalletConnected  prometheus.Gauge

	// Notification metrics
	NotificationsTotal *prometheus.CounterVec

	// Journal metrics
	JournalWriteErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_token_exchange"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operations_total",
			Help:      "Total number of token operations by kind and outcome",
		}, []string{"kind", "status"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "operation_duration_seconds",
			Help:      "Token operation duration from assembly to confirmation",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"kind"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_latency_seconds",
			Help:      "RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "call_errors_total",
			Help:      "Total number of failed RPC calls by method",
		}, []string{"method"}),
		ConfirmLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "confirm_latency_seconds",
			Help:      "Time from broadcast to confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),

		SessionBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "balance_sol",
			Help:      "Last fetched SOL balance of the connected wallet",
		}),
		BalanceRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "balance_refreshes_total",
			Help:      "Total number of balance refreshes by outcome",
		}, []string{"status"}),
		AirdropsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "airdrops_total",
			Help:      "Total number of airdrop requests by outcome",
		}, []string{"status"}),
		WalletConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "wallet_connected",
			Help:      "1 while a wallet is connected",
		}),

		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Total number of user notifications by level",
		}, []string{"level"}),

		JournalWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "write_errors_total",
			Help:      "Total number of activity journal write failures",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordOperation records the outcome and duration of a token operation.
func RecordOperation(kind, status string, durationSeconds float64) {
	DefaultMetrics.OperationsTotal.WithLabelValues(kind, status).Inc()
	DefaultMetrics.OperationDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordConfirmLatency records the time spent waiting for confirmation.
func RecordConfirmLatency(seconds float64) {
	DefaultMetrics.ConfirmLatency.Observe(seconds)
}

// RecordBalance updates the session balance gauge.
func RecordBalance(sol float64, err error) {
	if err != nil {
		DefaultMetrics.BalanceRefreshes.WithLabelValues("error").Inc()
		return
	}
	DefaultMetrics.BalanceRefreshes.WithLabelValues("success").Inc()
	DefaultMetrics.SessionBalance.Set(sol)
}

// RecordAirdrop records an airdrop request.
func RecordAirdrop(status string) {
	DefaultMetrics.AirdropsTotal.WithLabelValues(status).Inc()
}

// SetWalletConnected updates the wallet connection gauge.
func SetWalletConnected(connected bool) {
	if connected {
		DefaultMetrics.WalletConnected.Set(1)
		return
	}
	DefaultMetrics.WalletConnected.Set(0)
}

// RecordNotification counts a user notification.
func RecordNotification(level string) {
	DefaultMetrics.NotificationsTotal.WithLabelValues(level).Inc()
}

// RecordJournalError counts a failed activity journal write.
func RecordJournalError() {
	DefaultMetrics.JournalWriteErrors.Inc()
}
