package whitelist

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-io/castellan/pkg/types"
)

var (
	self     = common.HexToAddress("0x01")
	external = common.HexToAddress("0x02")
	sel      = types.SelectorFromSignature("executeCall(address,bytes)")
)

func TestSelfAlwaysWhitelisted(t *testing.T) {
	r := NewRegistry(self)
	assert.True(t, r.IsWhitelisted(sel, self))
	assert.False(t, r.IsWhitelisted(sel, external))
}

func TestTargetLifecycle(t *testing.T) {
	r := NewRegistry(self)

	require.NoError(t, r.AddTarget(sel, external))
	assert.True(t, r.IsWhitelisted(sel, external))
	assert.Len(t, r.Targets(sel), 1)

	// Whitelisting is per selector.
	other := types.SelectorFromSignature("otherCall()")
	assert.False(t, r.IsWhitelisted(other, external))

	assert.ErrorIs(t, r.AddTarget(sel, external), types.ErrResourceAlreadyExists)

	require.NoError(t, r.RemoveTarget(sel, external))
	assert.False(t, r.IsWhitelisted(sel, external))
	assert.ErrorIs(t, r.RemoveTarget(sel, external), types.ErrResourceNotFound)
}

func TestHookLifecycle(t *testing.T) {
	r := NewRegistry(self)

	require.NoError(t, r.AddHook(sel, external))
	assert.Len(t, r.Hooks(sel), 1)
	assert.ErrorIs(t, r.AddHook(sel, external), types.ErrResourceAlreadyExists)

	require.NoError(t, r.RemoveHook(sel, external))
	assert.Empty(t, r.Hooks(sel))
	assert.ErrorIs(t, r.RemoveHook(sel, external), types.ErrResourceNotFound)
}
