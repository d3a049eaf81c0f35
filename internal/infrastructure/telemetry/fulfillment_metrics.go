package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// FulfillmentMetrics records order transition and bulk execution metrics.
// A nil *FulfillmentMetrics is valid and records nothing.
type FulfillmentMetrics struct {
	transitionsAccepted *Counter
	transitionsRejected *Counter
	bulkOrders          *Counter
	bulkDuration        *Histogram
}

// NewFulfillmentMetrics registers the engine's instruments on meter
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   FulfillmentMetrics
		err error
	)
	if m.transitionsAccepted, err = NewCounter(meter,
		"fulfillment_transitions_accepted_total", "Accepted order transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if m.transitionsRejected, err = NewCounter(meter,
		"fulfillment_transitions_rejected_total", "Rejected order transitions", "{transitions}"); err != nil {
		return nil, err
	}
	if m.bulkOrders, err = NewCounter(meter,
		"fulfillment_bulk_orders_total", "Orders processed by bulk operations", "{orders}"); err != nil {
		return nil, err
	}
	if m.bulkDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "fulfillment_bulk_duration_seconds",
		Description: "Wall time of bulk operations",
		Unit:        "s",
		Boundaries:  BulkDurationBuckets,
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordTransition counts an accepted transition, or a rejected one with its error code
func (m *FulfillmentMetrics) RecordTransition(ctx context.Context, action, errorCode string) {
	if m == nil {
		return
	}
	if errorCode == "" {
		m.transitionsAccepted.Inc(ctx, AttrAction.String(action))
		return
	}
	m.transitionsRejected.Inc(ctx, AttrAction.String(action), AttrErrorCode.String(errorCode))
}

// RecordBulk records one bulk call's outcome counts and duration
func (m *FulfillmentMetrics) RecordBulk(ctx context.Context, operation string, processed, failed int, d time.Duration) {
	if m == nil {
		return
	}
	op := AttrOperation.String(operation)
	m.bulkOrders.Add(ctx, int64(processed), op, AttrOutcome.String("processed"))
	m.bulkOrders.Add(ctx, int64(failed), op, AttrOutcome.String("failed"))
	m.bulkDuration.RecordDuration(ctx, d, op)
}
