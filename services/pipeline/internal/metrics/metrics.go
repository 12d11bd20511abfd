// Package metrics records per-run pipeline metrics in a Prometheus registry.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "jobclean"

type Metrics struct {
	registry      *prometheus.Registry
	stageRows     *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
	duplicates    prometheus.Gauge
	runs          *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows in the dataset after each pipeline stage of the last run.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		duplicates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_rows",
			Help:      "Fully duplicated rows found in the last loaded dataset.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.stageRows,
		m.stageDuration,
		m.duplicates,
		m.runs,
		m.lastSuccess,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records how long stage took and how many rows it left.
// Negative rows skips the row gauge.
func (m *Metrics) ObserveStage(stage string, d time.Duration, rows int) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if rows >= 0 {
		m.stageRows.WithLabelValues(stage).Set(float64(rows))
	}
}

func (m *Metrics) SetDuplicates(n int) {
	m.duplicates.Set(float64(n))
}

func (m *Metrics) RunFinished(status string, at time.Time, succeeded bool) {
	m.runs.WithLabelValues(status).Inc()
	if succeeded {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

// Push sends the registry to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
