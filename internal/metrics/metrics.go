// Package metrics exposes staking operation metrics to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"staking-engine/internal/staking"
)

const namespace = "staking"

// Metrics records operation outcomes. It satisfies service.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TotalStaked       prometheus.Gauge
	ReleasedTotal     prometheus.Counter
}

// New registers the staking metrics with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of staking operations by outcome",
			},
			[]string{"op", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Histogram of staking operation latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		TotalStaked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_staked",
			Help:      "Principal currently staked in the pool, in base units",
		}),
		ReleasedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "released_total",
			Help:      "Base units released to packages by auto release",
		}),
	}
}

// result labels an outcome: "ok", the program error name, or "error".
func result(err error) string {
	if err == nil {
		return "ok"
	}
	var se *staking.Error
	if errors.As(err, &se) {
		return se.Name
	}
	return "error"
}

// ObserveOperation counts one operation and its latency.
func (m *Metrics) ObserveOperation(op string, err error, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(op, result(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetTotalStaked publishes the pool principal.
func (m *Metrics) SetTotalStaked(amount uint64) {
	m.TotalStaked.Set(float64(amount))
}

// AddReleased adds released base units.
func (m *Metrics) AddReleased(amount uint64) {
	m.ReleasedTotal.Add(float64(amount))
}

// WatchPool publishes connection pool gauges sampled on every scrape.
func (m *Metrics) WatchPool(pool *pgxpool.Pool) {
	factory := promauto.With(m.registry)
	gauges := []struct {
		name, help string
		value      func(*pgxpool.Stat) int32
	}{
		{"db_conns_total", "Connections currently in the pool", (*pgxpool.Stat).TotalConns},
		{"db_conns_acquired", "Connections currently checked out", (*pgxpool.Stat).AcquiredConns},
		{"db_conns_idle", "Idle connections in the pool", (*pgxpool.Stat).IdleConns},
	}
	for _, g := range gauges {
		value := g.value
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      g.name,
			Help:      g.help,
		}, func() float64 {
			return float64(value(pool.Stat()))
		})
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
