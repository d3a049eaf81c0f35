package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Bulk operation names
const (
	BulkOperationFulfill        = "fulfill"
	BulkOperationHold           = "hold"
	BulkOperationRelease        = "release"
	BulkOperationUpdateTracking = "update_tracking"
)

// CodeTimeout labels a bulk unit that ran past its per-order deadline
const CodeTimeout = "TIMEOUT"

// BulkConfig bounds bulk execution
type BulkConfig struct {
	// Concurrency caps the orders processed at once; zero means unbounded
	Concurrency int
	// OrderTimeout bounds each order's unit of work; zero disables it
	OrderTimeout time.Duration
	// MaxBatchSize rejects larger calls as a whole; zero disables the check
	MaxBatchSize int
}

// DefaultBulkConfig returns the defaults used when no configuration is given
func DefaultBulkConfig() BulkConfig {
	return BulkConfig{Concurrency: 8, OrderTimeout: 30 * time.Second, MaxBatchSize: 500}
}

// orderCommands is the slice of OrderService the bulk executor drives
type orderCommands interface {
	Fulfill(ctx context.Context, orderID uuid.UUID, req FulfillOrderRequest, actor string) (*FulfillOrderResponse, error)
	Hold(ctx context.Context, orderID uuid.UUID, req HoldOrderRequest, actor string) (*OrderResponse, error)
	Release(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error)
	UpdateTracking(ctx context.Context, orderID uuid.UUID, req UpdateTrackingRequest, actor string) (*OrderResponse, error)
}

// BulkExecutor applies one command to many orders. Every order is an
// independent unit: a failure, panic or timeout in one becomes an entry in
// the result and never stops the others. Per-order serialization comes from
// the order lock taken by each command.
type BulkExecutor struct {
	orders  orderCommands
	config  BulkConfig
	metrics *telemetry.FulfillmentMetrics
	logger  *zap.Logger
}

// NewBulkExecutor creates a new BulkExecutor
func NewBulkExecutor(orders *OrderService, config BulkConfig, logger *zap.Logger) *BulkExecutor {
	return newBulkExecutor(orders, config, logger)
}

func newBulkExecutor(orders orderCommands, config BulkConfig, logger *zap.Logger) *BulkExecutor {
	return &BulkExecutor{orders: orders, config: config, logger: logger}
}

// SetMetrics attaches bulk metrics
func (e *BulkExecutor) SetMetrics(metrics *telemetry.FulfillmentMetrics) {
	e.metrics = metrics
}

// BulkFulfill fulfills every remaining unit of each order
func (e *BulkExecutor) BulkFulfill(ctx context.Context, req BulkFulfillRequest, actor string) (*BulkOperationResult, error) {
	cmd := FulfillOrderRequest{NotifyCustomer: req.NotifyCustomer}
	return e.execute(ctx, BulkOperationFulfill, req.OrderIDs, func(ctx context.Context, i int) error {
		_, err := e.orders.Fulfill(ctx, req.OrderIDs[i], cmd, actor)
		return err
	})
}

// BulkHold places every order on hold with the same reason and notes
func (e *BulkExecutor) BulkHold(ctx context.Context, req BulkHoldRequest, actor string) (*BulkOperationResult, error) {
	cmd := HoldOrderRequest{Reason: req.Reason, Notes: req.Notes}
	return e.execute(ctx, BulkOperationHold, req.OrderIDs, func(ctx context.Context, i int) error {
		_, err := e.orders.Hold(ctx, req.OrderIDs[i], cmd, actor)
		return err
	})
}

// BulkRelease releases every order's hold
func (e *BulkExecutor) BulkRelease(ctx context.Context, req BulkReleaseRequest, actor string) (*BulkOperationResult, error) {
	return e.execute(ctx, BulkOperationRelease, req.OrderIDs, func(ctx context.Context, i int) error {
		_, err := e.orders.Release(ctx, req.OrderIDs[i], actor)
		return err
	})
}

// BulkUpdateTracking applies each order's own tracking
func (e *BulkExecutor) BulkUpdateTracking(ctx context.Context, req BulkTrackingUpdateRequest, actor string) (*BulkOperationResult, error) {
	ids := make([]uuid.UUID, len(req.Updates))
	for i, u := range req.Updates {
		ids[i] = u.OrderID
	}
	return e.execute(ctx, BulkOperationUpdateTracking, ids, func(ctx context.Context, i int) error {
		u := req.Updates[i]
		_, err := e.orders.UpdateTracking(ctx, u.OrderID, UpdateTrackingRequest{
			TrackingNumber: u.TrackingNumber,
			Carrier:        u.Carrier,
			TrackingURL:    u.TrackingURL,
			NotifyCustomer: req.NotifyCustomer,
		}, actor)
		return err
	})
}

// execute fans unit out over ids and gathers outcomes by input index
func (e *BulkExecutor) execute(ctx context.Context, operation string, ids []uuid.UUID, unit func(ctx context.Context, i int) error) (*BulkOperationResult, error) {
	if e.config.MaxBatchSize > 0 && len(ids) > e.config.MaxBatchSize {
		return nil, fulfillment.NewValidationError(uuid.Nil,
			"bulk %s accepts at most %d orders, got %d", operation, e.config.MaxBatchSize, len(ids))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment_bulk", operation)
	defer span.End()
	start := time.Now()

	errs := make([]error, len(ids))
	var g errgroup.Group
	if e.config.Concurrency > 0 {
		g.SetLimit(e.config.Concurrency)
	}
	for i := range ids {
		g.Go(func() error {
			errs[i] = e.runUnit(ctx, i, unit)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkOperationResult{Errors: make([]BulkOperationError, 0)}
	for i, err := range errs {
		if err == nil {
			result.Processed++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, BulkOperationError{
			OrderID: ids[i],
			Error:   err.Error(),
			Code:    unitErrorCode(err),
		})
	}
	result.Success = result.Failed == 0

	elapsed := time.Since(start)
	e.metrics.RecordBulk(ctx, operation, result.Processed, result.Failed, elapsed)
	logger.WithLogger(ctx, e.logger).Info("bulk operation completed",
		zap.String("operation", operation),
		zap.Int("requested", len(ids)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// errUnitPanic marks a unit that panicked
var errUnitPanic = errors.New("bulk unit panicked")

// timeoutError wraps the error of a unit that ran past its deadline
type timeoutError struct {
	err   error
	after time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timed out after %s: %v", e.after, e.err)
}

func (e *timeoutError) Unwrap() error {
	return e.err
}

func unitErrorCode(err error) string {
	var te *timeoutError
	switch {
	case errors.As(err, &te):
		return CodeTimeout
	case errors.Is(err, errUnitPanic):
		return CodeInternal
	default:
		return errorCode(err)
	}
}

// runUnit isolates one order: it bounds the unit's time and turns a panic into an error
func (e *BulkExecutor) runUnit(ctx context.Context, i int, unit func(ctx context.Context, i int) error) (err error) {
	if e.config.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.OrderTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.WithLogger(ctx, e.logger).Error("bulk unit panicked",
				zap.Int("index", i),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
			err = fmt.Errorf("%w: %v", errUnitPanic, r)
		}
	}()

	if err = unit(ctx, i); err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &timeoutError{err: err, after: e.config.OrderTimeout}
	}
	return err
}
