package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/castellan-io/castellan/pkg/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists event log entries for historical query.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle and runs migrations.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("eventlog store migrate: %w", err)
	}
	return s, nil
}

// OpenSQLiteStore opens (or creates) the database at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("eventlog store open: %w", err)
	}
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS lifecycle_events (
		id TEXT PRIMARY KEY,
		sequence INTEGER NOT NULL,
		tx_id INTEGER NOT NULL,
		handler_selector TEXT NOT NULL,
		status INTEGER NOT NULL,
		requester TEXT NOT NULL,
		target TEXT NOT NULL,
		operation_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		prev_hash TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_lifecycle_events_tx ON lifecycle_events(tx_id);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

// Append inserts one entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) error {
	query := `
	INSERT INTO lifecycle_events
		(id, sequence, tx_id, handler_selector, status, requester, target, operation_type, content_hash, prev_hash, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.ID, e.Sequence, uint64(e.TxID), e.HandlerSelector.String(), uint8(e.Status),
		e.Requester.Hex(), e.Target.Hex(), e.OperationType.Hex(),
		e.ContentHash, e.PrevHash, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListByTx returns every entry recorded for one transaction, oldest first.
func (s *SQLiteStore) ListByTx(ctx context.Context, txID types.TxID) ([]Entry, error) {
	query := selectColumns + ` WHERE tx_id = ? ORDER BY sequence ASC`
	rows, err := s.db.QueryContext(ctx, query, uint64(txID))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// List returns the most recent entries, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	query := selectColumns + ` ORDER BY sequence DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectColumns = `
	SELECT id, sequence, tx_id, handler_selector, status, requester, target, operation_type, content_hash, prev_hash, timestamp
	FROM lifecycle_events`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			txID      uint64
			selector  string
			status    uint8
			requester string
			target    string
			opType    string
		)
		if err := rows.Scan(&e.ID, &e.Sequence, &txID, &selector, &status,
			&requester, &target, &opType, &e.ContentHash, &e.PrevHash, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		sel, err := types.ParseSelector(selector)
		if err != nil {
			return nil, fmt.Errorf("scan event selector: %w", err)
		}
		e.TxID = types.TxID(txID)
		e.HandlerSelector = sel
		e.Status = types.TxStatus(status)
		e.Requester = common.HexToAddress(requester)
		e.Target = common.HexToAddress(target)
		e.OperationType = common.HexToHash(opType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
