package registry

import (
	"fmt"

	"github.com/castellan-io/castellan/pkg/action"
	"github.com/castellan-io/castellan/pkg/types"
)

// AddFunctionToRole grants a permission to a role. The grant must be a
// subset of the function's supported actions, and may not pair signing
// and execution authority for the same meta workflow unless explicitly
// flagged self-service.
func (r *Registry) AddFunctionToRole(hash types.RoleHash, perm types.FunctionPermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addFunctionToRoleLocked(hash, perm)
}

func (r *Registry) addFunctionToRoleLocked(hash types.RoleHash, perm types.FunctionPermission) error {
	role, ok := r.roles[hash]
	if !ok {
		return fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}

	schema, ok := r.schemas[perm.Selector]
	if !ok {
		return fmt.Errorf("function %s: %w", perm.Selector, types.ErrResourceNotFound)
	}
	for _, a := range perm.Grants.Actions() {
		if !schema.Supports(a) {
			return fmt.Errorf("function %s (%s) does not support %s: %w",
				perm.Selector, schema.Name, a, types.ErrNotSupported)
		}
	}

	if _, exists := role.Permissions[perm.Selector]; exists {
		return fmt.Errorf("role %q already has a permission for %s: %w",
			role.Name, perm.Selector, types.ErrResourceAlreadyExists)
	}

	if err := checkRoleSeparation(role.Name, perm); err != nil {
		return err
	}

	if perm.HandlerFor == nil {
		perm.HandlerFor = make(map[types.Selector]struct{})
	}
	if perm.Kind == types.KindExecution {
		// Execution permissions authorize exactly their own selector.
		perm.HandlerFor = map[types.Selector]struct{}{perm.Selector: {}}
	}
	role.Permissions[perm.Selector] = perm.Clone()
	return nil
}

// checkRoleSeparation enforces the two-key model: signing authority and
// execution authority for one meta workflow on one selector must live
// in different roles, unless the grant is marked self-service.
func checkRoleSeparation(roleName string, perm types.FunctionPermission) error {
	if perm.SelfService {
		return nil
	}
	for _, a := range perm.Grants.Actions() {
		if !a.IsSignMeta() {
			continue
		}
		counterpart, ok := a.MetaCounterpart()
		if ok && perm.Grants.Has(counterpart) {
			return fmt.Errorf("role %q grants both %s and %s on %s: %w",
				roleName, a, counterpart, perm.Selector, types.ErrConflictingMetaTxPermissions)
		}
	}
	return nil
}

// RemoveFunctionFromRole revokes a role's permission on a selector.
func (r *Registry) RemoveFunctionFromRole(hash types.RoleHash, selector types.Selector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeFunctionFromRoleLocked(hash, selector)
}

func (r *Registry) removeFunctionFromRoleLocked(hash types.RoleHash, selector types.Selector) error {
	role, ok := r.roles[hash]
	if !ok {
		return fmt.Errorf("role %s: %w", hash, types.ErrResourceNotFound)
	}
	if _, ok := role.Permissions[selector]; !ok {
		return fmt.Errorf("role %q has no permission on %s: %w", role.Name, selector, types.ErrResourceNotFound)
	}
	delete(role.Permissions, selector)
	return nil
}

// RoleHasActionPermission reports whether the role grants the action on
// the selector.
func (r *Registry) RoleHasActionPermission(hash types.RoleHash, selector types.Selector, a action.Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[hash]
	if !ok {
		return false
	}
	perm, ok := role.Permissions[selector]
	return ok && perm.Grants.Has(a)
}

// HasActionPermission reports whether any role the wallet holds grants
// the action on the selector.
func (r *Registry) HasActionPermission(wallet types.Address, selector types.Selector, a action.Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasActionLocked(wallet, selector, a)
}

func (r *Registry) hasActionLocked(wallet types.Address, selector types.Selector, a action.Action) bool {
	for _, role := range r.roles {
		if !role.HasWallet(wallet) {
			continue
		}
		if perm, ok := role.Permissions[selector]; ok && perm.Grants.Has(a) {
			return true
		}
	}
	return false
}

// CheckDualPermission enforces the dual-permission model: the wallet's
// handler-side grant must cover both the action and the execution
// selector, and the execution selector's own permission must
// independently grant the action. Being allowed to call a handler never
// implies authority over a different underlying execution target.
func (r *Registry) CheckDualPermission(wallet types.Address, handler, execution types.Selector, a action.Action) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlerOK := false
	for _, role := range r.roles {
		if !role.HasWallet(wallet) {
			continue
		}
		perm, ok := role.Permissions[handler]
		if ok && perm.Grants.Has(a) && perm.Authorizes(execution) {
			handlerOK = true
			break
		}
	}
	if !handlerOK {
		return fmt.Errorf("wallet %s lacks %s on handler %s for execution %s: %w",
			wallet, a, handler, execution, types.ErrNoPermission)
	}

	if !r.hasActionLocked(wallet, execution, a) {
		return fmt.Errorf("wallet %s lacks %s on execution selector %s: %w",
			wallet, a, execution, types.ErrNoPermission)
	}
	return nil
}
