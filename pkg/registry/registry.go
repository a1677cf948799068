// Package registry owns roles and function schemas and answers the
// engine's central question: does wallet W hold action A on function F.
// All state lives in one Registry value; identity (role hash, selector)
// is an opaque key, never a live reference.
package registry

import (
	"fmt"
	"sync"

	"github.com/castellan-io/castellan/pkg/types"
)

// Registry is the permission store. Zero value is not usable; construct
// with NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	roles   map[types.RoleHash]*types.Role
	schemas map[types.Selector]*types.FunctionSchema
}

// NewRegistry creates an empty permission registry.
func NewRegistry() *Registry {
	return &Registry{
		roles:   make(map[types.RoleHash]*types.Role),
		schemas: make(map[types.Selector]*types.FunctionSchema),
	}
}

// CreateRole registers a new role. The role hash is derived from the
// name; capacity must be positive.
func (r *Registry) CreateRole(name string, maxWallets int, protected bool) (*types.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createRoleLocked(name, maxWallets, protected)
}

func (r *Registry) createRoleLocked(name string, maxWallets int, protected bool) (*types.Role, error) {
	if name == "" {
		return nil, fmt.Errorf("role name must not be empty: %w", types.ErrInvalidOperation)
	}
	if maxWallets <= 0 {
		return nil, fmt.Errorf("role %q: max wallets must be positive, got %d: %w", name, maxWallets, types.ErrInvalidOperation)
	}

	hash := types.RoleHashFromName(name)
	if _, exists := r.roles[hash]; exists {
		return nil, fmt.Errorf("role %q: %w", name, types.ErrResourceAlreadyExists)
	}

	role := &types.Role{
		Hash:        hash,
		Name:        name,
		MaxWallets:  maxWallets,
		Wallets:     make(map[types.Address]struct{}),
		Permissions: make(map[types.Selector]*types.FunctionPermission),
		Protected:   protected,
	}
	r.roles[hash] = role
	return role.Clone(), nil
}

// RemoveRole deletes a role. Protected roles cannot be removed.
func (r *Registry) RemoveRole(hash types.RoleHash) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeRoleLocked(hash)
}

func (r *Registry) removeRoleLocked(hash types.RoleHash) error {
	role, ok := r.roles[hash]
	if !ok {
		return fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}
	if role.Protected {
		return fmt.Errorf("role %q is protected: %w", role.Name, types.ErrCannotModifyProtected)
	}
	delete(r.roles, hash)
	return nil
}

// AssignWallet adds a wallet to a role. Fails without mutating
// membership when the role is at capacity.
func (r *Registry) AssignWallet(hash types.RoleHash, wallet types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assignWalletLocked(hash, wallet)
}

func (r *Registry) assignWalletLocked(hash types.RoleHash, wallet types.Address) error {
	role, ok := r.roles[hash]
	if !ok {
		return fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}
	if role.HasWallet(wallet) {
		return fmt.Errorf("wallet %s already in role %q: %w", wallet, role.Name, types.ErrResourceAlreadyExists)
	}
	if len(role.Wallets) >= role.MaxWallets {
		return fmt.Errorf("role %q at capacity %d: %w", role.Name, role.MaxWallets, types.ErrCapacityExceeded)
	}
	role.Wallets[wallet] = struct{}{}
	return nil
}

// RevokeWallet removes a wallet from a role.
func (r *Registry) RevokeWallet(hash types.RoleHash, wallet types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeWalletLocked(hash, wallet)
}

func (r *Registry) revokeWalletLocked(hash types.RoleHash, wallet types.Address) error {
	role, ok := r.roles[hash]
	if !ok {
		return fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}
	if !role.HasWallet(wallet) {
		return fmt.Errorf("wallet %s not in role %q: %w", wallet, role.Name, types.ErrResourceNotFound)
	}
	delete(role.Wallets, wallet)
	return nil
}

// CreateFunctionSchema registers a governed function. The selector is
// derived from the canonical signature when unset.
func (r *Registry) CreateFunctionSchema(schema types.FunctionSchema) (*types.FunctionSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if schema.Signature == "" {
		return nil, fmt.Errorf("function schema requires a canonical signature: %w", types.ErrInvalidOperation)
	}
	if schema.Selector.IsZero() {
		schema.Selector = types.SelectorFromSignature(schema.Signature)
	}
	if _, exists := r.schemas[schema.Selector]; exists {
		return nil, fmt.Errorf("function %s (%s): %w", schema.Selector, schema.Signature, types.ErrResourceAlreadyExists)
	}

	stored := schema
	r.schemas[schema.Selector] = &stored
	out := stored
	return &out, nil
}

// RemoveFunctionSchema deletes a schema. In safe mode the removal fails
// while any role still references the selector.
func (r *Registry) RemoveFunctionSchema(selector types.Selector, safe bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.schemas[selector]
	if !ok {
		return fmt.Errorf("function %s: %w", selector, types.ErrResourceNotFound)
	}
	if schema.Protected {
		return fmt.Errorf("function %s (%s) is protected: %w", selector, schema.Name, types.ErrCannotModifyProtected)
	}
	if safe {
		for _, role := range r.roles {
			if _, referenced := role.Permissions[selector]; referenced {
				return fmt.Errorf("function %s still referenced by role %q: %w", selector, role.Name, types.ErrInvalidOperation)
			}
		}
	}
	delete(r.schemas, selector)
	return nil
}

// GetRole returns a copy of the role.
func (r *Registry) GetRole(hash types.RoleHash) (*types.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[hash]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}
	return role.Clone(), nil
}

// SupportedRoles lists every registered role.
func (r *Registry) SupportedRoles() []*types.Role {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role.Clone())
	}
	return out
}

// SupportedFunctions lists every registered function schema.
func (r *Registry) SupportedFunctions() []*types.FunctionSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.FunctionSchema, 0, len(r.schemas))
	for _, s := range r.schemas {
		copy := *s
		out = append(out, &copy)
	}
	return out
}

// SupportedOperationTypes lists the distinct operation types across all
// registered functions.
func (r *Registry) SupportedOperationTypes() []types.OperationType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[types.OperationType]struct{}, len(r.schemas))
	var out []types.OperationType
	for _, s := range r.schemas {
		if _, dup := seen[s.OperationType]; dup {
			continue
		}
		seen[s.OperationType] = struct{}{}
		out = append(out, s.OperationType)
	}
	return out
}

// RolesOf lists the roles a wallet belongs to.
func (r *Registry) RolesOf(wallet types.Address) []types.RoleHash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []types.RoleHash
	for hash, role := range r.roles {
		if role.HasWallet(wallet) {
			out = append(out, hash)
		}
	}
	return out
}

// GetFunctionSchema returns a copy of the schema for a selector.
func (r *Registry) GetFunctionSchema(selector types.Selector) (*types.FunctionSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schemas[selector]
	if !ok {
		return nil, fmt.Errorf("function %s: %w", selector, types.ErrResourceNotFound)
	}
	copy := *s
	return &copy, nil
}
