package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/handlegraph/followings-gateway/internal/domain"
)

var (
	metricsOnce         sync.Once
	metricsInitErr      error
	resolutionCounter   metric.Int64Counter
	resolutionLatency   metric.Float64Histogram
	followingsHistogram metric.Int64Histogram
	upstreamCallCounter metric.Int64Counter
)

// ResolutionMetrics captures the fields recorded for one finished resolution.
type ResolutionMetrics struct {
	Adapter    string
	Outcome    string
	Followings int
	Duration   time.Duration
}

// RecordResolution emits the counters and histograms describing a finished
// resolution, successful or not.
func RecordResolution(ctx context.Context, m ResolutionMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("upstream.adapter", m.Adapter),
		attribute.String("resolution.outcome", m.Outcome),
	}

	resolutionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if m.Duration > 0 {
		resolutionLatency.Record(ctx, float64(m.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	if m.Outcome == domain.OutcomeOK {
		followingsHistogram.Record(ctx, int64(m.Followings), metric.WithAttributes(attrs...))
	}
}

// UpstreamCallMetrics captures the fields recorded for one upstream exchange.
type UpstreamCallMetrics struct {
	Adapter string
	Step    string
	Status  int
}

// RecordUpstreamCall counts upstream HTTP exchanges partitioned by pipeline
// step and response status class.
func RecordUpstreamCall(ctx context.Context, m UpstreamCallMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("upstream.adapter", m.Adapter),
		attribute.String("upstream.step", m.Step),
		attribute.String("upstream.status_class", statusClass(m.Status)),
	}

	upstreamCallCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// statusClass collapses a status code into its class so the counter
// cardinality stays bounded. Zero means the exchange never completed.
func statusClass(status int) string {
	switch {
	case status <= 0:
		return "none"
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("gateway.resolution")

		resolutionCounter, metricsInitErr = meter.Int64Counter(
			"gateway.resolutions_total",
			metric.WithDescription("Handle resolutions partitioned by adapter and outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		resolutionLatency, metricsInitErr = meter.Float64Histogram(
			"gateway.resolution.duration_ms",
			metric.WithDescription("End to end resolution latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		followingsHistogram, metricsInitErr = meter.Int64Histogram(
			"gateway.resolution.followings",
			metric.WithDescription("Followed accounts returned per successful resolution"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		upstreamCallCounter, metricsInitErr = meter.Int64Counter(
			"gateway.upstream.calls_total",
			metric.WithDescription("Upstream HTTP exchanges partitioned by step and status class"),
			metric.WithUnit("{count}"),
		)
	})

	return metricsInitErr
}
