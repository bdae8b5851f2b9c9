package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "stategraph"

// MetricsObserver records run and node counters in Prometheus collectors.
//
// Metrics:
//   - stategraph_node_executions_total{graph,node}
//   - stategraph_runs_total{graph,status}, status is "completed" or the
//     failure reason carried by graph.error events
//   - stategraph_run_steps{graph}, histogram of steps per completed run
type MetricsObserver struct {
	nodeExecutions *prometheus.CounterVec
	runs           *prometheus.CounterVec
	steps          *prometheus.HistogramVec
}

// NewMetricsObserver creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewMetricsObserver(reg prometheus.Registerer) (*MetricsObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &MetricsObserver{
		nodeExecutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions.",
			},
			[]string{"graph", "node"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by status.",
			},
			[]string{"graph", "status"},
		),
		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "run_steps",
				Help:      "Number of steps taken by completed runs.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
			},
			[]string{"graph"},
		),
	}

	for _, c := range []prometheus.Collector{m.nodeExecutions, m.runs, m.steps} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Runs exposes the run counter, mainly for tests and ad-hoc inspection.
func (m *MetricsObserver) Runs() *prometheus.CounterVec {
	return m.runs
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	switch event.Type {
	case EventNodeComplete:
		node, _ := event.Data["node"].(string)
		m.nodeExecutions.WithLabelValues(event.Source, node).Inc()
	case EventGraphComplete:
		m.runs.WithLabelValues(event.Source, "completed").Inc()
		if steps, ok := event.Data["steps"].(int); ok {
			m.steps.WithLabelValues(event.Source).Observe(float64(steps))
		}
	case EventGraphError:
		reason, _ := event.Data["reason"].(string)
		if reason == "" {
			reason = "error"
		}
		m.runs.WithLabelValues(event.Source, reason).Inc()
	}
}
