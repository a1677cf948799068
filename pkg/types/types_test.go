package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminality(t *testing.T) {
	terminal := []TxStatus{StatusCancelled, StatusCompleted, StatusFailed, StatusRejected}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	assert.False(t, StatusUndefined.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
}

func TestSelectorDerivation(t *testing.T) {
	sel := SelectorFromSignature("transferOwnership(address)")
	assert.False(t, sel.IsZero())

	// Same signature, same selector.
	assert.Equal(t, sel, SelectorFromSignature("transferOwnership(address)"))
	assert.NotEqual(t, sel, SelectorFromSignature("updateBroadcaster(address)"))

	parsed, err := ParseSelector(sel.String())
	require.NoError(t, err)
	assert.Equal(t, sel, parsed)
}

func TestParseSelectorRejectsBadInput(t *testing.T) {
	_, err := ParseSelector("0x1234")
	assert.Error(t, err)
	_, err = ParseSelector("nothex??")
	assert.Error(t, err)
}

func TestRoleHashDeterministic(t *testing.T) {
	a := RoleHashFromName("OWNER_ROLE")
	b := RoleHashFromName("OWNER_ROLE")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, RoleHashFromName("BROADCASTER_ROLE"))
}

func TestRecordCloneIsIndependent(t *testing.T) {
	rec := &TxRecord{
		ID:              7,
		Status:          StatusPending,
		ExecutionParams: []byte{1, 2, 3},
	}
	c := rec.Clone()
	c.ExecutionParams[0] = 9
	c.Status = StatusCompleted

	assert.Equal(t, byte(1), rec.ExecutionParams[0])
	assert.Equal(t, StatusPending, rec.Status)
}
