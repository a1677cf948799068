package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

// metrics holds the engine's instruments. Counter creation against the
// global meter provider cannot fail in a way worth aborting engine
// construction over, so instrument errors leave a nil counter and the
// record helpers no-op.
type metrics struct {
	tracer      trace.Tracer
	transitions metric.Int64Counter
	denials     metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter("castellan.engine")
	m := &metrics{tracer: otel.Tracer("castellan.engine")}

	m.transitions, _ = meter.Int64Counter("castellan.transactions.transitions.total",
		metric.WithDescription("Total number of transaction state transitions"),
		metric.WithUnit("{transition}"),
	)
	m.denials, _ = meter.Int64Counter("castellan.permissions.denials.total",
		metric.WithDescription("Total number of denied authorization checks"),
		metric.WithUnit("{denial}"),
	)
	return m
}

func (m *metrics) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, name)
}

func (m *metrics) recordTransition(ctx context.Context, status types.TxStatus) {
	if m.transitions == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status.String()),
	))
}

func (m *metrics) recordDenial(ctx context.Context, a action.Action) {
	if m.denials == nil {
		return
	}
	m.denials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", a.String()),
	))
}
