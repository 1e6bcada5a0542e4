package pipeline

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsPipeline holds Prometheus metrics for batch runs.
type metricsPipeline struct {
	once sync.Once

	items          *prometheus.CounterVec
	batches        *prometheus.CounterVec
	lookupFailures prometheus.Counter
}

var pipelineMetrics metricsPipeline

func (m *metricsPipeline) init() {
	m.once.Do(func() {
		m.items = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_items_total",
			Help: "Videos and course items by outcome",
		}, []string{"outcome", "reason"})
		m.batches = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_batches_total",
			Help: "Batch runs by source and result",
		}, []string{"source", "result"})

		m.lookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ingest_lookup_failures_total",
			Help: "Completion store lookups that failed and were treated as not processed",
		})

		prometheus.MustRegister(m.items, m.batches, m.lookupFailures)
	})
}
