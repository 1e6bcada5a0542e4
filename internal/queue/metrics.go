package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsQueue holds Prometheus metrics for the transcription queue.
type metricsQueue struct {
	once sync.Once

	pending  prometheus.Gauge
	active   prometheus.Gauge
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var queueMetrics metricsQueue

func (m *metricsQueue) init() {
	m.once.Do(func() {
		m.pending = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_transcription_queue_pending",
			Help: "Transcription tasks waiting for a slot",
		})
		m.active = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ingest_transcription_queue_active",
			Help: "Transcription tasks currently running",
		})
		m.rejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ingest_transcription_queue_rejected_total",
			Help: "Submissions refused by the transcription queue",
		}, []string{"reason"})
		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingest_transcription_duration_seconds",
			Help:    "Wall time of one transcription task",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"})

		prometheus.MustRegister(m.pending, m.active, m.rejected, m.duration)
	})
}

func (m *metricsQueue) observe(pending, active int) {
	m.pending.Set(float64(pending))
	m.active.Set(float64(active))
}
