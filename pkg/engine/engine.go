// Package engine implements the lifecycle of secure operation requests:
// the transaction ledger, the finite-state machine moving each request
// from creation to a terminal state, and the atomic-but-capturable
// dispatch to the governed operation.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/castellan-io/castellan/pkg/eventlog"
	"github.com/castellan-io/castellan/pkg/registry"
	"github.com/castellan-io/castellan/pkg/replay"
	"github.com/castellan-io/castellan/pkg/types"
	"github.com/castellan-io/castellan/pkg/whitelist"
)

// Clock provides authority time for the engine. Inject a deterministic
// clock in tests; the default is wall time.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// GasPriceFunc reports the current gas price for the meta-transaction
// max-gas-price check. A nil function (or nil result) means no price is
// known and no cap is enforced.
type GasPriceFunc func() *big.Int

// OperationFunc is one governed operation, keyed by execution selector.
// Its error is captured into the transaction record, never propagated
// to the lifecycle caller.
type OperationFunc func(ctx context.Context, rec *types.TxRecord) ([]byte, error)

// Config carries engine construction parameters.
type Config struct {
	// TimeLockPeriod is added to the request time to fix a record's
	// release time. Must be positive.
	TimeLockPeriod time.Duration

	// ChainID and Instance form the signature domain of this engine.
	ChainID  *big.Int
	Instance types.Address
}

// Engine owns the transaction ledger and drives the state machine. All
// identity handed out (TxID) is an opaque key into engine state.
type Engine struct {
	mu          sync.Mutex
	initialized bool

	cfg      Config
	clock    Clock
	gasPrice GasPriceFunc

	registry  *registry.Registry
	whitelist *whitelist.Registry
	guard     *replay.Guard
	events    *eventlog.Log

	txs    map[types.TxID]*types.TxRecord
	nextID types.TxID
	ops    map[types.Selector]OperationFunc

	metrics *metrics
}

// New constructs the engine. Construction is one-shot: there is no
// re-initialization path, and every collaborator is required.
func New(cfg Config, reg *registry.Registry, wl *whitelist.Registry, guard *replay.Guard, events *eventlog.Log) (*Engine, error) {
	if cfg.TimeLockPeriod <= 0 {
		return nil, fmt.Errorf("time lock period must be positive: %w", types.ErrInvalidOperation)
	}
	if reg == nil || wl == nil || guard == nil || events == nil {
		return nil, fmt.Errorf("engine requires registry, whitelist, replay guard and event log: %w", types.ErrInvalidOperation)
	}

	return &Engine{
		initialized: true,
		cfg:         cfg,
		clock:       wallClock{},
		registry:    reg,
		whitelist:   wl,
		guard:       guard,
		events:      events,
		txs:         make(map[types.TxID]*types.TxRecord),
		nextID:      1,
		ops:         make(map[types.Selector]OperationFunc),
		metrics:     newMetrics(),
	}, nil
}

// WithClock overrides the clock for deterministic testing.
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// WithGasPrice wires the gas price source used by meta-transaction
// validation.
func (e *Engine) WithGasPrice(f GasPriceFunc) *Engine {
	e.gasPrice = f
	return e
}

// ensureInitialized rejects use of a zero-value Engine. Every entry
// point checks this before touching any other field.
func (e *Engine) ensureInitialized() error {
	if !e.initialized {
		return fmt.Errorf("engine must be constructed with New: %w", types.ErrInvalidOperation)
	}
	return nil
}

// RegisterOperation binds an execution selector to the operation the
// engine dispatches to when a request for it is approved.
func (e *Engine) RegisterOperation(selector types.Selector, fn OperationFunc) error {
	if err := e.ensureInitialized(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.ops[selector]; exists {
		return fmt.Errorf("operation %s: %w", selector, types.ErrResourceAlreadyExists)
	}
	if fn == nil {
		return fmt.Errorf("operation %s: nil function: %w", selector, types.ErrInvalidOperation)
	}
	e.ops[selector] = fn
	return nil
}

// currentGasPrice returns the gas price if a source is wired.
func (e *Engine) currentGasPrice() *big.Int {
	if e.gasPrice == nil {
		return nil
	}
	return e.gasPrice()
}

// pendingRecord fetches a record that must be in PENDING state. Caller
// holds e.mu.
func (e *Engine) pendingRecord(txID types.TxID) (*types.TxRecord, error) {
	rec, ok := e.txs[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", txID, types.ErrResourceNotFound)
	}
	if rec.Status != types.StatusPending {
		return nil, fmt.Errorf("transaction %d is %s: %w", txID, rec.Status, types.ErrInvalidOperation)
	}
	return rec, nil
}

// checkWhitelisted enforces the target allow-list for the execution
// selector. Runs as validation, before any state mutation.
func (e *Engine) checkWhitelisted(rec *types.TxRecord) error {
	if !e.whitelist.IsWhitelisted(rec.ExecutionSelector, rec.Target) {
		return fmt.Errorf("target %s not whitelisted for %s: %w",
			rec.Target, rec.ExecutionSelector, types.ErrNoPermission)
	}
	return nil
}

// finalizeAndDispatch executes the stored operation and captures its
// outcome into the record. The record is moved to a terminal status
// BEFORE the operation runs: a maliciously re-entrant callee observes
// only terminal state and can never re-trigger approval or cancellation
// of the same transaction. The callee receives a copy of the record;
// only the engine writes Status and Result, under lock. Caller holds
// e.mu; the lock is released around the external call.
func (e *Engine) finalizeAndDispatch(ctx context.Context, rec *types.TxRecord) {
	rec.Status = types.StatusCompleted
	fn := e.ops[rec.ExecutionSelector]
	snapshot := rec.Clone()
	e.mu.Unlock()

	var (
		output []byte
		err    error
	)
	if fn == nil {
		err = fmt.Errorf("no operation registered for %s", rec.ExecutionSelector)
	} else {
		output, err = fn(ctx, snapshot)
	}

	e.mu.Lock()
	if err != nil {
		rec.Status = types.StatusFailed
		rec.Result = []byte(err.Error())
	} else {
		rec.Result = output
	}
}

// emit appends one event log entry for the record's current state.
// Called strictly after the state is finalized.
func (e *Engine) emit(ctx context.Context, rec *types.TxRecord) {
	e.events.Append(ctx, types.TransitionEvent{
		TxID:            rec.ID,
		HandlerSelector: rec.HandlerSelector,
		Status:          rec.Status,
		Requester:       rec.Requester,
		Target:          rec.Target,
		OperationType:   rec.OperationType,
		Timestamp:       e.clock.Now(),
	})
	e.metrics.recordTransition(ctx, rec.Status)
}
