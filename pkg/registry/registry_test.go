package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

var (
	walletA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	walletB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry()
}

func TestCreateRole(t *testing.T) {
	r := newTestRegistry(t)

	role, err := r.CreateRole("OWNER_ROLE", 2, true)
	require.NoError(t, err)
	assert.Equal(t, types.RoleHashFromName("OWNER_ROLE"), role.Hash)
	assert.True(t, role.Protected)

	_, err = r.CreateRole("OWNER_ROLE", 2, false)
	assert.ErrorIs(t, err, types.ErrResourceAlreadyExists)

	_, err = r.CreateRole("", 2, false)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	_, err = r.CreateRole("EMPTY", 0, false)
	assert.ErrorIs(t, err, types.ErrInvalidOperation)
}

func TestRemoveRoleProtection(t *testing.T) {
	r := newTestRegistry(t)

	protected, err := r.CreateRole("OWNER_ROLE", 1, true)
	require.NoError(t, err)
	plain, err := r.CreateRole("OPERATOR_ROLE", 1, false)
	require.NoError(t, err)

	assert.ErrorIs(t, r.RemoveRole(protected.Hash), types.ErrCannotModifyProtected)
	require.NoError(t, r.RemoveRole(plain.Hash))
	assert.ErrorIs(t, r.RemoveRole(plain.Hash), types.ErrResourceNotFound)
}

// Capacity scenario: assign at capacity fails without mutating
// membership; revoking frees the slot.
func TestWalletCapacity(t *testing.T) {
	r := newTestRegistry(t)
	role, err := r.CreateRole("RECOVERY_ROLE", 1, false)
	require.NoError(t, err)

	require.NoError(t, r.AssignWallet(role.Hash, walletA))

	err = r.AssignWallet(role.Hash, walletB)
	assert.ErrorIs(t, err, types.ErrCapacityExceeded)

	got, err := r.GetRole(role.Hash)
	require.NoError(t, err)
	assert.Len(t, got.Wallets, 1)
	assert.True(t, got.HasWallet(walletA))

	require.NoError(t, r.RevokeWallet(role.Hash, walletA))
	require.NoError(t, r.AssignWallet(role.Hash, walletB))

	got, err = r.GetRole(role.Hash)
	require.NoError(t, err)
	assert.True(t, got.HasWallet(walletB))
}

func TestAssignWalletDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	role, err := r.CreateRole("BROADCASTER_ROLE", 3, false)
	require.NoError(t, err)

	require.NoError(t, r.AssignWallet(role.Hash, walletA))
	assert.ErrorIs(t, r.AssignWallet(role.Hash, walletA), types.ErrResourceAlreadyExists)
	assert.ErrorIs(t, r.RevokeWallet(role.Hash, walletB), types.ErrResourceNotFound)
}

func TestFunctionSchemaLifecycle(t *testing.T) {
	r := newTestRegistry(t)

	schema, err := r.CreateFunctionSchema(types.FunctionSchema{
		Signature:     "transferOwnership(address)",
		Name:          "OWNERSHIP_TRANSFER",
		OperationType: types.OperationTypeFromName("OWNERSHIP"),
		Supported:     action.ToBitmap(action.TimeDelayRequest, action.TimeDelayApprove),
	})
	require.NoError(t, err)
	assert.Equal(t, types.SelectorFromSignature("transferOwnership(address)"), schema.Selector)

	_, err = r.CreateFunctionSchema(types.FunctionSchema{Signature: "transferOwnership(address)"})
	assert.ErrorIs(t, err, types.ErrResourceAlreadyExists)

	_, err = r.CreateFunctionSchema(types.FunctionSchema{})
	assert.ErrorIs(t, err, types.ErrInvalidOperation)

	require.NoError(t, r.RemoveFunctionSchema(schema.Selector, true))
	assert.ErrorIs(t, r.RemoveFunctionSchema(schema.Selector, true), types.ErrResourceNotFound)
}

func TestRemoveFunctionSchemaSafeMode(t *testing.T) {
	r := newTestRegistry(t)

	schema, err := r.CreateFunctionSchema(types.FunctionSchema{
		Signature: "updateBroadcaster(address)",
		Name:      "BROADCASTER_UPDATE",
		Supported: action.ToBitmap(action.TimeDelayRequest),
	})
	require.NoError(t, err)

	role, err := r.CreateRole("ADMIN_ROLE", 1, false)
	require.NoError(t, err)
	require.NoError(t, r.AddFunctionToRole(role.Hash, types.FunctionPermission{
		Selector: schema.Selector,
		Kind:     types.KindExecution,
		Grants:   action.ToBitmap(action.TimeDelayRequest),
	}))

	// Safe mode refuses while referenced; unsafe removal goes through.
	assert.ErrorIs(t, r.RemoveFunctionSchema(schema.Selector, true), types.ErrInvalidOperation)
	require.NoError(t, r.RemoveFunctionSchema(schema.Selector, false))
}

func TestProtectedSchemaCannotBeRemoved(t *testing.T) {
	r := newTestRegistry(t)
	schema, err := r.CreateFunctionSchema(types.FunctionSchema{
		Signature: "updateTimeLock(uint256)",
		Name:      "TIMELOCK_UPDATE",
		Protected: true,
	})
	require.NoError(t, err)
	assert.ErrorIs(t, r.RemoveFunctionSchema(schema.Selector, false), types.ErrCannotModifyProtected)
}
