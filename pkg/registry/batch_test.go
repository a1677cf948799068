package registry

import (
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

func batchAction(t *testing.T, typ BatchActionType, payload string) BatchAction {
	t.Helper()
	return BatchAction{Type: typ, Payload: json.RawMessage(payload)}
}

func TestApplyBatch(t *testing.T) {
	r := newTestRegistry(t)

	sel := types.SelectorFromSignature("executeRotation(address)")
	_, err := r.CreateFunctionSchema(types.FunctionSchema{
		Signature: "executeRotation(address)",
		Name:      "ROTATION",
		Supported: action.ToBitmap(action.TimeDelayRequest, action.TimeDelayApprove),
	})
	require.NoError(t, err)

	err = r.ApplyBatch([]BatchAction{
		batchAction(t, BatchCreateRole, `{"name": "ROTATOR_ROLE", "max_wallets": 2}`),
		batchAction(t, BatchAddWallet, `{"role": "ROTATOR_ROLE", "wallet": "0x00000000000000000000000000000000000000a1"}`),
		batchAction(t, BatchAddFunctionToRole, `{
			"role": "ROTATOR_ROLE",
			"selector": "`+sel.String()+`",
			"kind": "execution",
			"actions": ["TIME_DELAY_REQUEST", "TIME_DELAY_APPROVE"]
		}`),
	})
	require.NoError(t, err)

	hash := types.RoleHashFromName("ROTATOR_ROLE")
	role, err := r.GetRole(hash)
	require.NoError(t, err)
	assert.True(t, role.HasWallet(common.HexToAddress("0xa1")))
	assert.True(t, r.RoleHasActionPermission(hash, sel, action.TimeDelayApprove))
}

func TestApplyBatchOrderMatters(t *testing.T) {
	r := newTestRegistry(t)

	// Wallet assignment before role creation must fail.
	err := r.ApplyBatch([]BatchAction{
		batchAction(t, BatchAddWallet, `{"role": "LATE_ROLE", "wallet": "0x00000000000000000000000000000000000000a1"}`),
		batchAction(t, BatchCreateRole, `{"name": "LATE_ROLE", "max_wallets": 1}`),
	})
	assert.ErrorIs(t, err, types.ErrResourceNotFound)
}

func TestApplyBatchIsAtomic(t *testing.T) {
	r := newTestRegistry(t)

	err := r.ApplyBatch([]BatchAction{
		batchAction(t, BatchCreateRole, `{"name": "PARTIAL_ROLE", "max_wallets": 1}`),
		// Fails: role at capacity zero? No — unknown role.
		batchAction(t, BatchAddWallet, `{"role": "MISSING_ROLE", "wallet": "0x00000000000000000000000000000000000000a1"}`),
	})
	require.Error(t, err)

	// The first action must not have leaked into live state.
	_, err = r.GetRole(types.RoleHashFromName("PARTIAL_ROLE"))
	assert.ErrorIs(t, err, types.ErrResourceNotFound)
}

func TestApplyBatchSchemaValidation(t *testing.T) {
	r := newTestRegistry(t)

	cases := []struct {
		name    string
		action  BatchAction
	}{
		{"missing required field", batchAction(t, BatchCreateRole, `{"max_wallets": 1}`)},
		{"wrong type", batchAction(t, BatchCreateRole, `{"name": "X", "max_wallets": "many"}`)},
		{"zero capacity", batchAction(t, BatchCreateRole, `{"name": "X", "max_wallets": 0}`)},
		{"bad wallet format", batchAction(t, BatchAddWallet, `{"role": "X", "wallet": "a1"}`)},
		{"bad selector format", batchAction(t, BatchAddFunctionToRole, `{"role": "X", "selector": "0x12", "actions": ["TIME_DELAY_REQUEST"]}`)},
		{"unexpected property", batchAction(t, BatchRemoveRole, `{"name": "X", "extra": true}`)},
		{"not json", BatchAction{Type: BatchRemoveRole, Payload: json.RawMessage(`{{`)}},
		{"unknown action type", BatchAction{Type: "promote-role", Payload: json.RawMessage(`{}`)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, r.ApplyBatch([]BatchAction{tc.action}))
		})
	}
}

func TestApplyBatchUnknownActionName(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.CreateFunctionSchema(types.FunctionSchema{
		Signature: "noop()",
		Name:      "NOOP",
	})
	require.NoError(t, err)

	sel := types.SelectorFromSignature("noop()")
	err = r.ApplyBatch([]BatchAction{
		batchAction(t, BatchCreateRole, `{"name": "R", "max_wallets": 1}`),
		batchAction(t, BatchAddFunctionToRole, `{"role": "R", "selector": "`+sel.String()+`", "actions": ["NOT_AN_ACTION"]}`),
	})
	assert.ErrorIs(t, err, types.ErrNotSupported)
}
