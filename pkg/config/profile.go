package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/registry"
	"github.com/castellan-io/castellan/pkg/types"
	"github.com/castellan-io/castellan/pkg/whitelist"
)

// Profile is a declarative bootstrap: the function schemas, roles, and
// whitelist entries an engine deployment starts out with.
type Profile struct {
	Name      string           `yaml:"name"`
	Functions []FunctionConfig `yaml:"functions"`
	Roles     []RoleConfig     `yaml:"roles"`
	Whitelist []TargetConfig   `yaml:"whitelist"`
}

// FunctionConfig declares one function schema. The selector is derived
// from the signature.
type FunctionConfig struct {
	Signature     string   `yaml:"signature"`
	Name          string   `yaml:"name"`
	OperationType string   `yaml:"operation_type,omitempty"`
	Supported     []string `yaml:"supported"`
	Protected     bool     `yaml:"protected,omitempty"`
}

// RoleConfig declares one role, its wallets, and its permissions.
type RoleConfig struct {
	Name        string             `yaml:"name"`
	MaxWallets  int                `yaml:"max_wallets"`
	Protected   bool               `yaml:"protected,omitempty"`
	Wallets     []string           `yaml:"wallets,omitempty"`
	Permissions []PermissionConfig `yaml:"permissions,omitempty"`
}

// PermissionConfig grants actions on one function to the enclosing
// role. Function and HandlerFor reference FunctionConfig names.
type PermissionConfig struct {
	Function    string   `yaml:"function"`
	Kind        string   `yaml:"kind,omitempty"`
	Actions     []string `yaml:"actions"`
	HandlerFor  []string `yaml:"handler_for,omitempty"`
	SelfService bool     `yaml:"self_service,omitempty"`
}

// TargetConfig whitelists execution targets for a function.
type TargetConfig struct {
	Function string   `yaml:"function"`
	Targets  []string `yaml:"targets"`
}

// LoadProfile reads and parses one bootstrap profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Apply installs the profile: function schemas, then the role
// mutations as one atomic registry batch, then whitelist targets.
//
// Everything name-resolvable is validated before the first mutation, so
// a malformed profile (unknown function reference, bad action name,
// malformed payload) leaves both registries untouched. Apply targets
// freshly constructed registries at bootstrap; a schema or whitelist
// conflict with pre-existing state still aborts mid-install.
func (p *Profile) Apply(reg *registry.Registry, wl *whitelist.Registry) error {
	// Resolve and validate up front. Selectors derive from signatures
	// alone, so the full reference graph is checkable before mutating.
	selectors := make(map[string]types.Selector, len(p.Functions))
	schemas := make([]types.FunctionSchema, 0, len(p.Functions))
	for _, f := range p.Functions {
		supported, err := parseActions(f.Supported)
		if err != nil {
			return fmt.Errorf("function %s: %w", f.Name, err)
		}
		schema := types.FunctionSchema{
			Signature: f.Signature,
			Name:      f.Name,
			Supported: supported,
			Protected: f.Protected,
		}
		if f.OperationType != "" {
			schema.OperationType = types.OperationTypeFromName(f.OperationType)
		}
		schemas = append(schemas, schema)
		selectors[f.Name] = types.SelectorFromSignature(f.Signature)
	}

	batch, err := p.roleBatch(selectors)
	if err != nil {
		return err
	}

	for _, w := range p.Whitelist {
		if _, ok := selectors[w.Function]; !ok {
			return fmt.Errorf("whitelist references unknown function %q: %w", w.Function, types.ErrResourceNotFound)
		}
	}

	for _, schema := range schemas {
		if _, err := reg.CreateFunctionSchema(schema); err != nil {
			return fmt.Errorf("function %s: %w", schema.Name, err)
		}
	}
	if err := reg.ApplyBatch(batch); err != nil {
		return fmt.Errorf("apply role batch: %w", err)
	}
	for _, w := range p.Whitelist {
		for _, target := range w.Targets {
			if err := wl.AddTarget(selectors[w.Function], common.HexToAddress(target)); err != nil {
				return fmt.Errorf("whitelist %s: %w", w.Function, err)
			}
		}
	}
	return nil
}

// roleBatch lowers the role declarations into the registry's batch wire
// format, resolving function names to selectors.
func (p *Profile) roleBatch(selectors map[string]types.Selector) ([]registry.BatchAction, error) {
	var batch []registry.BatchAction

	appendAction := func(t registry.BatchActionType, payload any) error {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		batch = append(batch, registry.BatchAction{Type: t, Payload: raw})
		return nil
	}

	for _, r := range p.Roles {
		if err := appendAction(registry.BatchCreateRole, map[string]any{
			"name":        r.Name,
			"max_wallets": r.MaxWallets,
			"protected":   r.Protected,
		}); err != nil {
			return nil, err
		}

		for _, perm := range r.Permissions {
			sel, ok := selectors[perm.Function]
			if !ok {
				return nil, fmt.Errorf("role %s references unknown function %q: %w",
					r.Name, perm.Function, types.ErrResourceNotFound)
			}
			handlerFor := make([]string, 0, len(perm.HandlerFor))
			for _, name := range perm.HandlerFor {
				hs, ok := selectors[name]
				if !ok {
					return nil, fmt.Errorf("role %s references unknown function %q: %w",
						r.Name, name, types.ErrResourceNotFound)
				}
				handlerFor = append(handlerFor, hs.String())
			}
			payload := map[string]any{
				"role":     r.Name,
				"selector": sel.String(),
				"actions":  perm.Actions,
			}
			if perm.Kind != "" {
				payload["kind"] = perm.Kind
			}
			if len(handlerFor) > 0 {
				payload["handler_for"] = handlerFor
			}
			if perm.SelfService {
				payload["self_service"] = true
			}
			if err := appendAction(registry.BatchAddFunctionToRole, payload); err != nil {
				return nil, err
			}
		}

		for _, wallet := range r.Wallets {
			if err := appendAction(registry.BatchAddWallet, map[string]any{
				"role":   r.Name,
				"wallet": wallet,
			}); err != nil {
				return nil, err
			}
		}
	}
	return batch, nil
}

func parseActions(names []string) (action.Bitmap, error) {
	var b action.Bitmap
	for _, name := range names {
		a, err := action.Parse(name)
		if err != nil {
			return 0, err
		}
		b = b.With(a)
	}
	return b, nil
}
