package registry

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

// BatchActionType names one administrative mutation in the batch
// configuration wire format.
type BatchActionType string

const (
	BatchCreateRole             BatchActionType = "create-role"
	BatchRemoveRole             BatchActionType = "remove-role"
	BatchAddWallet              BatchActionType = "add-wallet"
	BatchRevokeWallet           BatchActionType = "revoke-wallet"
	BatchAddFunctionToRole      BatchActionType = "add-function-to-role"
	BatchRemoveFunctionFromRole BatchActionType = "remove-function-from-role"
)

// BatchAction is one ordered (actionType, payload) pair. The payload
// layout is action-specific and decoded only here.
type BatchAction struct {
	Type    BatchActionType `json:"action_type"`
	Payload json.RawMessage `json:"payload"`
}

const addressPattern = `^0x[0-9a-fA-F]{40}$`
const selectorPattern = `^0x[0-9a-fA-F]{8}$`

var batchSchemas = map[BatchActionType]*jsonschema.Schema{
	BatchCreateRole: jsonschema.MustCompileString("create-role.json", `{
		"type": "object",
		"required": ["name", "max_wallets"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"max_wallets": {"type": "integer", "minimum": 1},
			"protected": {"type": "boolean"}
		},
		"additionalProperties": false
	}`),
	BatchRemoveRole: jsonschema.MustCompileString("remove-role.json", `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string", "minLength": 1}},
		"additionalProperties": false
	}`),
	BatchAddWallet: jsonschema.MustCompileString("add-wallet.json", `{
		"type": "object",
		"required": ["role", "wallet"],
		"properties": {
			"role": {"type": "string", "minLength": 1},
			"wallet": {"type": "string", "pattern": "`+addressPattern+`"}
		},
		"additionalProperties": false
	}`),
	BatchRevokeWallet: jsonschema.MustCompileString("revoke-wallet.json", `{
		"type": "object",
		"required": ["role", "wallet"],
		"properties": {
			"role": {"type": "string", "minLength": 1},
			"wallet": {"type": "string", "pattern": "`+addressPattern+`"}
		},
		"additionalProperties": false
	}`),
	BatchAddFunctionToRole: jsonschema.MustCompileString("add-function-to-role.json", `{
		"type": "object",
		"required": ["role", "selector", "actions"],
		"properties": {
			"role": {"type": "string", "minLength": 1},
			"selector": {"type": "string", "pattern": "`+selectorPattern+`"},
			"kind": {"type": "string", "enum": ["handler", "execution"]},
			"actions": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"handler_for": {"type": "array", "items": {"type": "string", "pattern": "`+selectorPattern+`"}},
			"self_service": {"type": "boolean"}
		},
		"additionalProperties": false
	}`),
	BatchRemoveFunctionFromRole: jsonschema.MustCompileString("remove-function-from-role.json", `{
		"type": "object",
		"required": ["role", "selector"],
		"properties": {
			"role": {"type": "string", "minLength": 1},
			"selector": {"type": "string", "pattern": "`+selectorPattern+`"}
		},
		"additionalProperties": false
	}`),
}

type createRolePayload struct {
	Name       string `json:"name"`
	MaxWallets int    `json:"max_wallets"`
	Protected  bool   `json:"protected"`
}

type removeRolePayload struct {
	Name string `json:"name"`
}

type walletPayload struct {
	Role   string `json:"role"`
	Wallet string `json:"wallet"`
}

type addFunctionPayload struct {
	Role        string   `json:"role"`
	Selector    string   `json:"selector"`
	Kind        string   `json:"kind"`
	Actions     []string `json:"actions"`
	HandlerFor  []string `json:"handler_for"`
	SelfService bool     `json:"self_service"`
}

type removeFunctionPayload struct {
	Role     string `json:"role"`
	Selector string `json:"selector"`
}

// ApplyBatch decodes, validates, and applies an ordered list of
// administrative actions atomically: every payload is schema-validated
// up front, the mutations run against a staged copy, and the live state
// is swapped in only if all of them succeed. A failing action leaves the
// registry untouched.
func (r *Registry) ApplyBatch(actions []BatchAction) error {
	ops := make([]func(*Registry) error, 0, len(actions))
	for i, a := range actions {
		op, err := decodeBatchAction(a)
		if err != nil {
			return fmt.Errorf("batch action %d (%s): %w", i, a.Type, err)
		}
		ops = append(ops, op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := r.cloneLocked()
	for i, op := range ops {
		if err := op(staged); err != nil {
			return fmt.Errorf("batch action %d (%s): %w", i, actions[i].Type, err)
		}
	}

	r.roles = staged.roles
	r.schemas = staged.schemas
	return nil
}

func decodeBatchAction(a BatchAction) (func(*Registry) error, error) {
	schema, ok := batchSchemas[a.Type]
	if !ok {
		return nil, fmt.Errorf("unknown batch action type %q: %w", a.Type, types.ErrNotSupported)
	}

	var generic interface{}
	if err := json.Unmarshal(a.Payload, &generic); err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("payload rejected by schema: %w", err)
	}

	switch a.Type {
	case BatchCreateRole:
		var p createRolePayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, err
		}
		return func(r *Registry) error {
			_, err := r.createRoleLocked(p.Name, p.MaxWallets, p.Protected)
			return err
		}, nil

	case BatchRemoveRole:
		var p removeRolePayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, err
		}
		return func(r *Registry) error {
			return r.removeRoleLocked(types.RoleHashFromName(p.Name))
		}, nil

	case BatchAddWallet, BatchRevokeWallet:
		var p walletPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, err
		}
		hash := types.RoleHashFromName(p.Role)
		wallet := common.HexToAddress(p.Wallet)
		if a.Type == BatchAddWallet {
			return func(r *Registry) error { return r.assignWalletLocked(hash, wallet) }, nil
		}
		return func(r *Registry) error { return r.revokeWalletLocked(hash, wallet) }, nil

	case BatchAddFunctionToRole:
		var p addFunctionPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, err
		}
		perm, err := p.toPermission()
		if err != nil {
			return nil, err
		}
		hash := types.RoleHashFromName(p.Role)
		return func(r *Registry) error { return r.addFunctionToRoleLocked(hash, *perm) }, nil

	case BatchRemoveFunctionFromRole:
		var p removeFunctionPayload
		if err := json.Unmarshal(a.Payload, &p); err != nil {
			return nil, err
		}
		sel, err := types.ParseSelector(p.Selector)
		if err != nil {
			return nil, err
		}
		hash := types.RoleHashFromName(p.Role)
		return func(r *Registry) error { return r.removeFunctionFromRoleLocked(hash, sel) }, nil
	}

	return nil, fmt.Errorf("unknown batch action type %q: %w", a.Type, types.ErrNotSupported)
}

func (p *addFunctionPayload) toPermission() (*types.FunctionPermission, error) {
	sel, err := types.ParseSelector(p.Selector)
	if err != nil {
		return nil, err
	}

	var grants action.Bitmap
	for _, name := range p.Actions {
		a, err := action.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, types.ErrNotSupported)
		}
		grants = grants.With(a)
	}

	kind := types.KindHandler
	if p.Kind == "execution" {
		kind = types.KindExecution
	}

	handlerFor := make(map[types.Selector]struct{}, len(p.HandlerFor))
	for _, h := range p.HandlerFor {
		hs, err := types.ParseSelector(h)
		if err != nil {
			return nil, err
		}
		handlerFor[hs] = struct{}{}
	}

	return &types.FunctionPermission{
		Selector:    sel,
		Kind:        kind,
		Grants:      grants,
		HandlerFor:  handlerFor,
		SelfService: p.SelfService,
	}, nil
}

// cloneLocked deep-copies the registry state. Caller holds r.mu.
func (r *Registry) cloneLocked() *Registry {
	c := &Registry{
		roles:   make(map[types.RoleHash]*types.Role, len(r.roles)),
		schemas: make(map[types.Selector]*types.FunctionSchema, len(r.schemas)),
	}
	for hash, role := range r.roles {
		c.roles[hash] = role.Clone()
	}
	for sel, schema := range r.schemas {
		copy := *schema
		c.schemas[sel] = &copy
	}
	return c
}
