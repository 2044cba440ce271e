package probe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/hakim/snipe/internal/models"
)

const instrumentationName = "github.com/hakim/snipe/internal/probe"

type probeMetrics struct {
	verdicts metric.Int64Counter
	duration metric.Float64Histogram
}

func newProbeMetrics(mp metric.MeterProvider) (*probeMetrics, error) {
	meter := mp.Meter(instrumentationName)

	m := new(probeMetrics)
	var err error

	if m.verdicts, err = meter.Int64Counter(
		"snipe.probe.verdicts",
		metric.WithDescription("Number of domains checked, by verdict and protocol"),
	); err != nil {
		return nil, err
	}

	if m.duration, err = meter.Float64Histogram(
		"snipe.probe.duration_ms",
		metric.WithDescription("Time to reach a verdict for one domain"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *probeMetrics) record(ctx context.Context, r models.ScanResult, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", string(r.Status)),
		attribute.String("protocol", string(r.Protocol)),
	)
	m.verdicts.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}
