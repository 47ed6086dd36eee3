package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecosort/internal/domain"
)

// Metrics holds the ledger collectors. Each instance owns its registry so
// several engines can coexist in one process.
type Metrics struct {
	Registry   *prometheus.Registry
	Operations *prometheus.CounterVec
	TxDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ecosort_ledger_operations_total",
			Help: "Ledger and audit operations by outcome.",
		}, []string{"operation", "outcome"}),
		TxDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecosort_ledger_tx_duration_seconds",
			Help:    "Duration of ledger and audit operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// Observe records one operation. A nil receiver is a no-op.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.TxDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Outcome classifies err into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrAlreadyConsumed):
		return "already_consumed"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrDuplicateToken):
		return "duplicate_token"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrTransactionAborted):
		return "aborted"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
