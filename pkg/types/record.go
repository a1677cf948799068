package types

import (
	"math/big"
	"time"
)

// TxID is the opaque, monotonically assigned identifier of one
// authorization request. IDs are never reused.
type TxID uint64

// TxStatus is the lifecycle state of a TxRecord.
type TxStatus uint8

const (
	StatusUndefined TxStatus = iota
	StatusPending
	StatusCancelled
	StatusCompleted
	StatusFailed
	StatusRejected
)

var statusNames = map[TxStatus]string{
	StatusUndefined: "UNDEFINED",
	StatusPending:   "PENDING",
	StatusCancelled: "CANCELLED",
	StatusCompleted: "COMPLETED",
	StatusFailed:    "FAILED",
	StatusRejected:  "REJECTED",
}

func (s TxStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// IsTerminal reports whether the status is absorbing: every lifecycle
// call against a record in a terminal state must fail.
func (s TxStatus) IsTerminal() bool {
	return s != StatusUndefined && s != StatusPending
}

// TxParams carries the inputs of a new authorization request.
type TxParams struct {
	Requester         Address       `json:"requester"`
	Target            Address       `json:"target"`
	Value             *big.Int      `json:"value,omitempty"`
	GasLimit          uint64        `json:"gas_limit"`
	OperationType     OperationType `json:"operation_type"`
	HandlerSelector   Selector      `json:"handler_selector"`
	ExecutionSelector Selector      `json:"execution_selector"`
	ExecutionParams   []byte        `json:"execution_params,omitempty"`
}

// TxRecord is one authorization request and its lifecycle state. Records
// are created by the lifecycle engine, mutated only by it, and retained
// for historical query even after reaching a terminal state.
type TxRecord struct {
	ID                TxID          `json:"tx_id"`
	Status            TxStatus      `json:"status"`
	Requester         Address       `json:"requester"`
	Target            Address       `json:"target"`
	Value             *big.Int      `json:"value,omitempty"`
	GasLimit          uint64        `json:"gas_limit"`
	OperationType     OperationType `json:"operation_type"`
	HandlerSelector   Selector      `json:"handler_selector"`
	ExecutionSelector Selector      `json:"execution_selector"`
	ExecutionParams   []byte        `json:"execution_params,omitempty"`

	// ReleaseTime is fixed at creation and never changes: the earliest
	// instant a time-delay approval is valid.
	ReleaseTime time.Time `json:"release_time"`

	// Result holds the payload captured from execution dispatch: the
	// operation's return bytes on COMPLETED, the fault text on FAILED.
	// Empty until the record is terminal.
	Result []byte `json:"result,omitempty"`
}

// Clone returns an independent copy of the record so callers can never
// mutate ledger state through a query result.
func (r *TxRecord) Clone() *TxRecord {
	c := *r
	if r.Value != nil {
		c.Value = new(big.Int).Set(r.Value)
	}
	if r.ExecutionParams != nil {
		c.ExecutionParams = append([]byte(nil), r.ExecutionParams...)
	}
	if r.Result != nil {
		c.Result = append([]byte(nil), r.Result...)
	}
	return &c
}
