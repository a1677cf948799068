package engine

import (
	"context"
	"fmt"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/replay"
	"github.com/castellan-io/castellan/pkg/types"
)

// CreateUnsignedMetaTransaction assembles a meta-transaction for a NEW
// request-and-approve flow. The nonce is filled from the replay guard
// and the message hash is computed over the engine's domain, so callers
// only add a signature over MessageHash.
func (e *Engine) CreateUnsignedMetaTransaction(p types.TxParams, mp types.MetaTxParams) (*types.MetaTransaction, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateParams(p); err != nil {
		return nil, err
	}
	m := &types.MetaTransaction{
		TxParams: p,
		Params:   mp,
	}
	e.prepareMetaTx(m)
	return m, nil
}

// CreateUnsignedMetaTransactionForExisting assembles a meta-transaction
// approving or cancelling an EXISTING pending transaction by ID.
func (e *Engine) CreateUnsignedMetaTransactionForExisting(txID types.TxID, mp types.MetaTxParams) (*types.MetaTransaction, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.pendingRecord(txID)
	if err != nil {
		return nil, err
	}
	m := &types.MetaTransaction{
		TxID:   txID,
		Params: mp,
	}
	if m.Params.HandlerSelector.IsZero() {
		m.Params.HandlerSelector = rec.HandlerSelector
	}
	e.prepareMetaTx(m)
	return m, nil
}

// prepareMetaTx fills domain defaults, the signer's current nonce, and
// the message hash. Caller holds e.mu.
func (e *Engine) prepareMetaTx(m *types.MetaTransaction) {
	if m.Params.ChainID == nil {
		m.Params.ChainID = e.cfg.ChainID
	}
	if m.Params.HandlerContract == (types.Address{}) {
		m.Params.HandlerContract = e.cfg.Instance
	}
	m.Params.Nonce = e.guard.NonceFor(m.Params.Signer)
	m.MessageHash = replay.MessageHash(e.guard.Domain(), m)
}

// ApprovalWithMetaTx approves and dispatches an existing pending
// transaction on the strength of a signed meta-transaction. The signer
// authorizes via signature, the executor via its own execution-side
// permission; no time lock applies. The nonce is consumed only after
// every validation has passed.
func (e *Engine) ApprovalWithMetaTx(ctx context.Context, executor types.Address, m *types.MetaTransaction) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.ApprovalWithMetaTx")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if m.IsNewTransaction() {
		return nil, fmt.Errorf("meta approval requires an existing transaction: %w", types.ErrInvalidOperation)
	}
	rec, err := e.pendingRecord(m.TxID)
	if err != nil {
		return nil, err
	}
	if err := e.validateMetaTx(ctx, m, rec.HandlerSelector, rec.ExecutionSelector, executor,
		action.SignMetaApprove, action.ExecuteMetaApprove); err != nil {
		return nil, err
	}
	if err := e.checkWhitelisted(rec); err != nil {
		e.metrics.recordDenial(ctx, action.ExecuteMetaApprove)
		return nil, err
	}
	if err := e.guard.Consume(m.Params.Signer, m.Params.Nonce); err != nil {
		return nil, err
	}

	e.finalizeAndDispatch(ctx, rec)
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// CancellationWithMetaTx cancels an existing pending transaction on the
// strength of a signed meta-transaction.
func (e *Engine) CancellationWithMetaTx(ctx context.Context, executor types.Address, m *types.MetaTransaction) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.CancellationWithMetaTx")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if m.IsNewTransaction() {
		return nil, fmt.Errorf("meta cancellation requires an existing transaction: %w", types.ErrInvalidOperation)
	}
	rec, err := e.pendingRecord(m.TxID)
	if err != nil {
		return nil, err
	}
	if err := e.validateMetaTx(ctx, m, rec.HandlerSelector, rec.ExecutionSelector, executor,
		action.SignMetaCancel, action.ExecuteMetaCancel); err != nil {
		return nil, err
	}
	if err := e.guard.Consume(m.Params.Signer, m.Params.Nonce); err != nil {
		return nil, err
	}

	rec.Status = types.StatusCancelled
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// RequestAndApprove creates a transaction and dispatches it in one
// step, bypassing the time lock. The two-key requirement — a signer
// with the sign-side grant and an executor with the execute-side
// grant — substitutes for the delay.
func (e *Engine) RequestAndApprove(ctx context.Context, executor types.Address, m *types.MetaTransaction) (*types.TxRecord, error) {
	if err := e.ensureInitialized(); err != nil {
		return nil, err
	}

	ctx, span := e.metrics.startSpan(ctx, "engine.RequestAndApprove")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	if !m.IsNewTransaction() {
		return nil, fmt.Errorf("request-and-approve requires a new transaction: %w", types.ErrInvalidOperation)
	}
	if err := e.validateParams(m.TxParams); err != nil {
		return nil, err
	}
	if err := e.checkSchemaSupports(m.TxParams.HandlerSelector, action.SignMetaRequestAndApprove); err != nil {
		return nil, err
	}
	if err := e.validateMetaTx(ctx, m, m.TxParams.HandlerSelector, m.TxParams.ExecutionSelector, executor,
		action.SignMetaRequestAndApprove, action.ExecuteMetaRequestAndApprove); err != nil {
		return nil, err
	}

	if !e.whitelist.IsWhitelisted(m.TxParams.ExecutionSelector, m.TxParams.Target) {
		e.metrics.recordDenial(ctx, action.ExecuteMetaRequestAndApprove)
		return nil, fmt.Errorf("target %s not whitelisted for %s: %w",
			m.TxParams.Target, m.TxParams.ExecutionSelector, types.ErrNoPermission)
	}
	if err := e.guard.Consume(m.Params.Signer, m.Params.Nonce); err != nil {
		return nil, err
	}

	rec := e.createRecord(m.Params.Signer, m.TxParams)
	rec.ReleaseTime = e.clock.Now()
	e.finalizeAndDispatch(ctx, rec)
	e.emit(ctx, rec)
	return rec.Clone(), nil
}

// validateMetaTx runs the full meta-transaction validation order:
// binding to this engine instance and the expected action, then the
// replay guard's deadline/gas/signature/nonce checks, then the signer's
// sign-side permission and the executor's execute-side permission.
// Nothing here mutates state. Caller holds e.mu.
func (e *Engine) validateMetaTx(ctx context.Context, m *types.MetaTransaction, handler, execution types.Selector, executor types.Address, signAction, execAction action.Action) error {
	if m.Params.HandlerContract != e.cfg.Instance {
		return fmt.Errorf("meta-tx bound to %s, engine instance is %s: %w",
			m.Params.HandlerContract, e.cfg.Instance, types.ErrInvalidOperation)
	}
	if m.Params.HandlerSelector != handler {
		return fmt.Errorf("meta-tx handler selector %s does not match transaction handler %s: %w",
			m.Params.HandlerSelector, handler, types.ErrInvalidOperation)
	}
	if m.Params.Action != signAction {
		return fmt.Errorf("meta-tx signed for %s, %s required: %w",
			m.Params.Action, signAction, types.ErrInvalidOperation)
	}

	if err := e.guard.Validate(m, e.clock.Now(), e.currentGasPrice()); err != nil {
		return err
	}

	if err := e.registry.CheckDualPermission(m.Params.Signer, handler, execution, signAction); err != nil {
		e.metrics.recordDenial(ctx, signAction)
		return fmt.Errorf("signer %s lacks %s permission: %w",
			m.Params.Signer, signAction, types.ErrSignerNotAuthorized)
	}
	if err := e.registry.CheckDualPermission(executor, handler, execution, execAction); err != nil {
		e.metrics.recordDenial(ctx, execAction)
		return err
	}
	return nil
}
