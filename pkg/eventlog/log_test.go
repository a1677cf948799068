package eventlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-io/castellan/pkg/types"
)

func testEvent(txID types.TxID, status types.TxStatus) types.TransitionEvent {
	return types.TransitionEvent{
		TxID:            txID,
		HandlerSelector: types.SelectorFromSignature("transferOwnership(address)"),
		Status:          status,
		Requester:       common.HexToAddress("0xa1"),
		Target:          common.HexToAddress("0xb2"),
		OperationType:   types.OperationTypeFromName("OWNERSHIP"),
		Timestamp:       time.Now(),
	}
}

func TestAppendChainsEntries(t *testing.T) {
	l := NewLog()

	e1 := l.Append(context.Background(), testEvent(1, types.StatusPending))
	e2 := l.Append(context.Background(), testEvent(1, types.StatusCompleted))

	assert.Equal(t, uint64(1), e1.Sequence)
	assert.Equal(t, uint64(2), e2.Sequence)
	assert.Equal(t, "genesis", e1.PrevHash)
	assert.Equal(t, e1.ContentHash, e2.PrevHash)
	assert.Equal(t, e2.ContentHash, l.Head())

	require.NoError(t, l.Verify())
}

func TestVerifyDetectsTampering(t *testing.T) {
	l := NewLog()
	l.Append(context.Background(), testEvent(1, types.StatusPending))
	l.Append(context.Background(), testEvent(1, types.StatusCancelled))

	l.entries[0].Status = types.StatusCompleted
	assert.Error(t, l.Verify())
}

// Every payload field is committed to the content hash, not just the
// status and chain position.
func TestVerifyDetectsTamperedPayloadFields(t *testing.T) {
	tamper := map[string]func(*Entry){
		"requester":      func(e *Entry) { e.Requester = common.HexToAddress("0xff") },
		"target":         func(e *Entry) { e.Target = common.HexToAddress("0xff") },
		"operation_type": func(e *Entry) { e.OperationType = types.OperationTypeFromName("OTHER") },
		"timestamp":      func(e *Entry) { e.Timestamp = e.Timestamp.Add(time.Hour) },
	}
	for name, mutate := range tamper {
		t.Run(name, func(t *testing.T) {
			l := NewLog()
			l.Append(context.Background(), testEvent(1, types.StatusPending))
			require.NoError(t, l.Verify())

			mutate(&l.entries[0])
			assert.Error(t, l.Verify())
		})
	}
}

func TestEntriesForTx(t *testing.T) {
	l := NewLog()
	l.Append(context.Background(), testEvent(1, types.StatusPending))
	l.Append(context.Background(), testEvent(2, types.StatusPending))
	l.Append(context.Background(), testEvent(1, types.StatusCompleted))

	assert.Len(t, l.EntriesForTx(1), 2)
	assert.Len(t, l.EntriesForTx(2), 1)
	assert.Empty(t, l.EntriesForTx(3))
	assert.Equal(t, 3, l.Length())
}

type failingObserver struct{ calls int }

func (o *failingObserver) Notify(ctx context.Context, entry Entry) error {
	o.calls++
	return errors.New("observer down")
}

// Observer failure must never roll back the append.
func TestObserverFailureTolerated(t *testing.T) {
	obs := &failingObserver{}
	l := NewLog().WithObserver(obs)

	l.Append(context.Background(), testEvent(1, types.StatusPending))

	assert.Equal(t, 1, obs.calls)
	assert.Equal(t, 1, l.Length())
	require.NoError(t, l.Verify())
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	l := NewLog().WithStore(store)
	l.Append(context.Background(), testEvent(7, types.StatusPending))
	l.Append(context.Background(), testEvent(7, types.StatusFailed))
	l.Append(context.Background(), testEvent(8, types.StatusPending))

	byTx, err := store.ListByTx(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, byTx, 2)
	assert.Equal(t, types.StatusPending, byTx[0].Status)
	assert.Equal(t, types.StatusFailed, byTx[1].Status)
	assert.Equal(t, types.TxID(7), byTx[0].TxID)
	assert.Equal(t, common.HexToAddress("0xa1"), byTx[0].Requester)

	recent, err := store.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, uint64(3), recent[0].Sequence)
}
