package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// telemetry pipeline.
type Metrics struct {
	EnvelopesConsumed *prometheus.CounterVec // labels: source={udp,rest}
	RecordsProduced   prometheus.Counter
	RecordsDecoded    *prometheus.CounterVec // labels: record_type
	DecodeErrors      *prometheus.CounterVec // labels: kind (DecodeError kind or "other")
	DuplicatesDropped prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Source adapter metrics.
	UDPDatagramsDropped prometheus.Counter
	RESTPollDuration    prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		EnvelopesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "envelopes_consumed_total",
			Help:      "Total raw envelopes received, by source adapter.",
		}, []string{"source"}),
		RecordsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "records_produced_total",
			Help:      "Total telemetry events written to the sink topic.",
		}),
		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "records_decoded_total",
			Help:      "Successfully decoded records by wire type.",
		}, []string{"record_type"}),
		DecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "decode_errors_total",
			Help:      "Envelopes that failed to decode, by failure kind.",
		}, []string{"kind"}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "duplicates_dropped_total",
			Help:      "Envelopes dropped because the hub rebroadcast them.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tempest_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tempest_etl",
			Name:      "batch_size",
			Help:      "Number of envelopes per extracted batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tempest_etl",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		UDPDatagramsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tempest_etl",
			Name:      "udp_datagrams_dropped_total",
			Help:      "Datagrams discarded because the receive buffer was full.",
		}),
		RESTPollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tempest_etl",
			Name:      "rest_poll_duration_seconds",
			Help:      "WeatherFlow REST poll request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}

	prometheus.MustRegister(
		m.EnvelopesConsumed,
		m.RecordsProduced,
		m.RecordsDecoded,
		m.DecodeErrors,
		m.DuplicatesDropped,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.UDPDatagramsDropped,
		m.RESTPollDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default
// registry to avoid "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		EnvelopesConsumed:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "envelopes_consumed_total"}, []string{"source"}),
		RecordsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "records_produced_total"}),
		RecordsDecoded:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "records_decoded_total"}, []string{"record_type"}),
		DecodeErrors:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "decode_errors_total"}, []string{"kind"}),
		DuplicatesDropped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "duplicates_dropped_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tempest_etl", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tempest_etl", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tempest_etl", Name: "batch_processing_duration_seconds"}),
		UDPDatagramsDropped:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tempest_etl", Name: "udp_datagrams_dropped_total"}),
		RESTPollDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tempest_etl", Name: "rest_poll_duration_seconds"}),
	}
}
