package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/castellan-io/castellan/pkg/types"
)

// GetTransaction returns a copy of the record for txID.
func (e *Engine) GetTransaction(txID types.TxID) (*types.TxRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.txs[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", txID, types.ErrResourceNotFound)
	}
	return rec.Clone(), nil
}

// PendingTransactions lists the IDs of all records still in PENDING
// state, in ascending ID order.
func (e *Engine) PendingTransactions() []types.TxID {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]types.TxID, 0)
	for id, rec := range e.txs {
		if rec.Status == types.StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsPending reports whether txID exists and is still pending.
func (e *Engine) IsPending(txID types.TxID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.txs[txID]
	return ok && rec.Status == types.StatusPending
}

// NonceFor exposes the replay guard's current nonce for a signer.
func (e *Engine) NonceFor(signer types.Address) uint64 {
	return e.guard.NonceFor(signer)
}

// TimeLockPeriod returns the configured delay between request and
// earliest approval.
func (e *Engine) TimeLockPeriod() time.Duration {
	return e.cfg.TimeLockPeriod
}
