// Package eventlog — append-only record of lifecycle transitions.
//
// Every transition produces exactly one entry. Entries are hash-chained
// to their predecessor; the chain is verifiable end to end. An optional
// observer receives each entry after it is appended — observer failures
// are logged and swallowed, never rolled back into the transition.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castellan-io/castellan/pkg/canonicalize"
	"github.com/castellan-io/castellan/pkg/types"
)

// Entry is one immutable, hash-chained event log record.
type Entry struct {
	ID              string              `json:"id"`
	Sequence        uint64              `json:"sequence"`
	TxID            types.TxID          `json:"tx_id"`
	HandlerSelector types.Selector      `json:"handler_selector"`
	Status          types.TxStatus      `json:"status"`
	Requester       types.Address       `json:"requester"`
	Target          types.Address       `json:"target"`
	OperationType   types.OperationType `json:"operation_type"`
	ContentHash     string              `json:"content_hash"`
	PrevHash        string              `json:"prev_hash"`
	Timestamp       time.Time           `json:"timestamp"`
}

// Observer receives appended entries. Implementations must tolerate
// being called after the transition is final: returning an error only
// produces a warning log.
type Observer interface {
	Notify(ctx context.Context, entry Entry) error
}

// Store persists entries beyond process lifetime.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByTx(ctx context.Context, txID types.TxID) ([]Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Log is the append-only event log.
type Log struct {
	mu       sync.RWMutex
	entries  []Entry
	headHash string
	observer Observer
	store    Store
	logger   *slog.Logger
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{
		headHash: "genesis",
		logger:   slog.Default(),
	}
}

// WithObserver attaches an external observer.
func (l *Log) WithObserver(o Observer) *Log {
	l.observer = o
	return l
}

// WithStore attaches a persistent store.
func (l *Log) WithStore(s Store) *Log {
	l.store = s
	return l
}

// WithLogger overrides the default logger.
func (l *Log) WithLogger(logger *slog.Logger) *Log {
	l.logger = logger
	return l
}

// Append records one lifecycle transition and forwards it. The append
// itself cannot fail on observer or store errors; those are logged.
func (l *Log) Append(ctx context.Context, e types.TransitionEvent) Entry {
	l.mu.Lock()

	entry := Entry{
		ID:              uuid.New().String(),
		Sequence:        uint64(len(l.entries)) + 1,
		TxID:            e.TxID,
		HandlerSelector: e.HandlerSelector,
		Status:          e.Status,
		Requester:       e.Requester,
		Target:          e.Target,
		OperationType:   e.OperationType,
		PrevHash:        l.headHash,
		Timestamp:       e.Timestamp,
	}
	entry.ContentHash = contentHash(entry)

	l.entries = append(l.entries, entry)
	l.headHash = entry.ContentHash
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.Append(ctx, entry); err != nil {
			l.logger.Warn("event store append failed", "tx_id", uint64(entry.TxID), "error", err)
		}
	}
	if l.observer != nil {
		if err := l.observer.Notify(ctx, entry); err != nil {
			l.logger.Warn("event observer rejected entry", "tx_id", uint64(entry.TxID), "error", err)
		}
	}
	return entry
}

// Entries returns a snapshot of all entries in append order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EntriesForTx returns the entries recorded for one transaction.
func (l *Log) EntriesForTx(txID types.TxID) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.TxID == txID {
			out = append(out, e)
		}
	}
	return out
}

// Length returns the number of entries.
func (l *Log) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Head returns the current head hash.
func (l *Log) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.headHash
}

// Verify walks the chain and reports the first inconsistency.
func (l *Log) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	prev := "genesis"
	for i, e := range l.entries {
		if e.PrevHash != prev {
			return fmt.Errorf("chain broken at entry %d: expected prev %s, got %s", i+1, prev, e.PrevHash)
		}
		if contentHash(e) != e.ContentHash {
			return fmt.Errorf("hash mismatch at entry %d", i+1)
		}
		prev = e.ContentHash
	}
	return nil
}

// contentHash commits to the full entry payload; any field edit breaks
// the chain.
func contentHash(e Entry) string {
	hashable := struct {
		ID            string         `json:"id"`
		Sequence      uint64         `json:"sequence"`
		TxID          types.TxID     `json:"tx_id"`
		Selector      string         `json:"selector"`
		Status        types.TxStatus `json:"status"`
		Requester     string         `json:"requester"`
		Target        string         `json:"target"`
		OperationType string         `json:"operation_type"`
		Timestamp     string         `json:"timestamp"`
		PrevHash      string         `json:"prev_hash"`
	}{
		e.ID, e.Sequence, e.TxID, e.HandlerSelector.String(), e.Status,
		e.Requester.Hex(), e.Target.Hex(), e.OperationType.Hex(),
		e.Timestamp.UTC().Format(time.RFC3339Nano), e.PrevHash,
	}

	h, err := canonicalize.CanonicalHash(hashable)
	if err != nil {
		// Hashable struct is marshal-safe; this cannot happen at runtime.
		panic(fmt.Sprintf("eventlog: content hash: %v", err))
	}
	return "sha256:" + h
}
