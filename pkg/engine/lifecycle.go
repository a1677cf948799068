package engine

import (
	"context"
	"fmt"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

// Request opens a new time-delayed transaction. The caller needs the
// dual permission (handler grant covering the execution selector plus
// an execution-side grant) for the request action. The record becomes
// executable once the time lock elapses.
func (e *Engine) Request(ctx context.Context, caller types.Address, p types.TxParams) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.Request")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateParams(p); err != nil {
		return nil, err
	}
	if err := e.checkSchemaSupports(p.HandlerSelector, action.TimeDelayRequest); err != nil {
		return nil, err
	}
	if err := e.registry.CheckDualPermission(caller, p.HandlerSelector, p.ExecutionSelector, action.TimeDelayRequest); err != nil {
		e.metrics.recordDenial(ctx, action.TimeDelayRequest)
		return nil, err
	}

	rec := e.createRecord(caller, p)
	rec.ReleaseTime = e.clock.Now().Add(e.cfg.TimeLockPeriod)
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// DelayedApproval releases a pending transaction once its time lock
// has elapsed and dispatches the stored operation. The dispatch
// outcome is captured into the record, never returned as an error.
func (e *Engine) DelayedApproval(ctx context.Context, caller types.Address, txID types.TxID) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.DelayedApproval")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.pendingRecord(txID)
	if err != nil {
		return nil, err
	}
	if now := e.clock.Now(); now.Before(rec.ReleaseTime) {
		return nil, fmt.Errorf("release at %s, now %s: %w",
			rec.ReleaseTime.UTC().Format("2006-01-02T15:04:05Z"),
			now.UTC().Format("2006-01-02T15:04:05Z"), types.ErrTooEarly)
	}
	if err := e.registry.CheckDualPermission(caller, rec.HandlerSelector, rec.ExecutionSelector, action.TimeDelayApprove); err != nil {
		e.metrics.recordDenial(ctx, action.TimeDelayApprove)
		return nil, err
	}
	if err := e.checkWhitelisted(rec); err != nil {
		e.metrics.recordDenial(ctx, action.TimeDelayApprove)
		return nil, err
	}

	e.finalizeAndDispatch(ctx, rec)
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// Cancellation moves a pending transaction to CANCELLED. Cancellation
// is allowed at any point while the record is pending, including before
// the time lock elapses.
func (e *Engine) Cancellation(ctx context.Context, caller types.Address, txID types.TxID) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.Cancellation")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.pendingRecord(txID)
	if err != nil {
		return nil, err
	}
	if err := e.registry.CheckDualPermission(caller, rec.HandlerSelector, rec.ExecutionSelector, action.TimeDelayCancel); err != nil {
		e.metrics.recordDenial(ctx, action.TimeDelayCancel)
		return nil, err
	}

	rec.Status = types.StatusCancelled
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// validateParams rejects structurally unusable transaction parameters
// before any permission work. Caller holds e.mu.
func (e *Engine) validateParams(p types.TxParams) error {
	if p.HandlerSelector.IsZero() || p.ExecutionSelector.IsZero() {
		return fmt.Errorf("handler and execution selectors are required: %w", types.ErrInvalidOperation)
	}
	return nil
}

// checkSchemaSupports verifies the handler function is registered and
// declares support for the action. Caller holds e.mu.
func (e *Engine) checkSchemaSupports(handler types.Selector, a action.Action) error {
	schema, err := e.registry.GetFunctionSchema(handler)
	if err != nil {
		return err
	}
	if !schema.Supports(a) {
		return fmt.Errorf("handler %s does not support %s: %w", handler, a, types.ErrNotSupported)
	}
	return nil
}

// createRecord allocates the next TxID and stores a pending record.
// Caller holds e.mu.
func (e *Engine) createRecord(requester types.Address, p types.TxParams) *types.TxRecord {
	rec := &types.TxRecord{
		ID:                e.nextID,
		Status:            types.StatusPending,
		Requester:         requester,
		Target:            p.Target,
		Value:             p.Value,
		GasLimit:          p.GasLimit,
		OperationType:     p.OperationType,
		HandlerSelector:   p.HandlerSelector,
		ExecutionSelector: p.ExecutionSelector,
		ExecutionParams:   append([]byte(nil), p.ExecutionParams...),
	}
	e.nextID++
	e.txs[rec.ID] = rec
	return rec
}
