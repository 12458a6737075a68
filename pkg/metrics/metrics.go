// Package metrics holds the Prometheus collectors of the ingestion and
// reconstruction pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "epitaxy"

// Skip reasons for samples that did not make it into a channel
const (
	ReasonMalformed = "malformed"
	ReasonSpacing   = "spacing"
)

// Metrics bundles the collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	samplesIngested   *prometheus.CounterVec
	samplesSkipped    *prometheus.CounterVec
	shutterEvents     *prometheus.CounterVec
	channelNodes      *prometheus.GaugeVec
	channelsProcessed prometheus.Counter
	layersResolved    prometheus.Counter
	reconstructTime   prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		samplesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_ingested_total",
			Help:      "Raw samples accepted into a channel.",
		}, []string{"channel"}),
		samplesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_skipped_total",
			Help:      "Raw samples dropped during ingestion.",
		}, []string{"channel", "reason"}),
		shutterEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shutter_events_total",
			Help:      "Shutter state changes recorded.",
		}, []string{"channel"}),
		channelNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "channel_nodes",
			Help:      "Nodes kept by resampling in the last processed run.",
		}, []string{"channel"}),
		channelsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_processed_total",
			Help:      "Channels resampled and turned into active intervals.",
		}),
		layersResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_resolved_total",
			Help:      "Layers reconstructed.",
		}),
		reconstructTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconstruction_duration_seconds",
			Help:      "Wall time of a full layer reconstruction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
	}

	m.registry.MustRegister(
		m.samplesIngested,
		m.samplesSkipped,
		m.shutterEvents,
		m.channelNodes,
		m.channelsProcessed,
		m.layersResolved,
		m.reconstructTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on, nil for nil metrics
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SamplesIngested counts accepted samples of a channel
func (m *Metrics) SamplesIngested(channel string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.samplesIngested.WithLabelValues(channel).Add(float64(n))
}

// SamplesSkipped counts dropped samples of a channel by reason
func (m *Metrics) SamplesSkipped(channel, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.samplesSkipped.WithLabelValues(channel, reason).Add(float64(n))
}

// ShutterEvents counts recorded shutter changes of a channel
func (m *Metrics) ShutterEvents(channel string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.shutterEvents.WithLabelValues(channel).Add(float64(n))
}

// ChannelProcessed records a processed channel and its node count
func (m *Metrics) ChannelProcessed(channel string, nodes int) {
	if m == nil {
		return
	}
	m.channelsProcessed.Inc()
	m.channelNodes.WithLabelValues(channel).Set(float64(nodes))
}

// Reconstructed records a finished reconstruction
func (m *Metrics) Reconstructed(layers int, took time.Duration) {
	if m == nil {
		return
	}
	m.layersResolved.Add(float64(layers))
	m.reconstructTime.Observe(took.Seconds())
}
