// Package observe provides application-wide observability primitives
// for the Aiush gateway: OpenTelemetry metrics, distributed tracing,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A
// Prometheus exporter bridge is available via [InitProvider] so that
// metrics can be scraped via the standard /metrics endpoint. Tests
// should use [NewMetrics] with a private [metric.MeterProvider] to
// avoid cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/aiushlabs/aiush-gateway"

// Metrics holds all OpenTelemetry metric instruments for the gateway.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// --- Latency histograms per upstream call ---

	// LLMDuration tracks generative model invocation latency.
	LLMDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts handled turns. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	Turns metric.Int64Counter

	// FallbackResponses counts turns whose model output failed the
	// structured-output parse and degraded to the raw-text fallback.
	FallbackResponses metric.Int64Counter

	// HistoryWrites counts background history writes. Use with attribute:
	//   attribute.String("status", "ok"|"error"|"dropped")
	HistoryWrites metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds)
// sized for remote model and speech API latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the
// given [metric.MeterProvider]. Returns an error if any instrument
// creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("aiush.llm.duration",
		metric.WithDescription("Latency of generative model invocations."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("aiush.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("aiush.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("aiush.turns",
		metric.WithDescription("Number of handled turns."),
	); err != nil {
		return nil, err
	}
	if met.FallbackResponses, err = m.Int64Counter("aiush.responses.fallback",
		metric.WithDescription("Turns whose model output degraded to the raw-text fallback."),
	); err != nil {
		return nil, err
	}
	if met.HistoryWrites, err = m.Int64Counter("aiush.history.writes",
		metric.WithDescription("Background history write attempts by status."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("aiush.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}
