// Package whitelist keeps the per-function allow-lists of callable
// external targets and auxiliary hook targets. The lifecycle engine
// consults it immediately before dispatch.
package whitelist

import (
	"fmt"
	"sync"

	"github.com/castellan-io/castellan/pkg/types"
)

// Registry holds whitelisted targets and hooks per function selector.
type Registry struct {
	mu      sync.RWMutex
	self    types.Address
	targets map[types.Selector]map[types.Address]struct{}
	hooks   map[types.Selector]map[types.Address]struct{}
}

// NewRegistry creates a whitelist bound to the governed component's own
// address, which is always implicitly allowed.
func NewRegistry(self types.Address) *Registry {
	return &Registry{
		self:    self,
		targets: make(map[types.Selector]map[types.Address]struct{}),
		hooks:   make(map[types.Selector]map[types.Address]struct{}),
	}
}

// AddTarget allows target for the selector.
func (r *Registry) AddTarget(selector types.Selector, target types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return add(r.targets, selector, target, "target")
}

// RemoveTarget disallows target for the selector.
func (r *Registry) RemoveTarget(selector types.Selector, target types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.targets, selector, target, "target")
}

// IsWhitelisted reports whether the target may be called for the
// selector. An internal call to the component itself is always allowed
// regardless of whitelist contents.
func (r *Registry) IsWhitelisted(selector types.Selector, target types.Address) bool {
	if target == r.self {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.targets[selector][target]
	return ok
}

// Targets lists the whitelisted targets for a selector.
func (r *Registry) Targets(selector types.Selector) []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return list(r.targets, selector)
}

// AddHook registers an auxiliary hook target for the selector.
func (r *Registry) AddHook(selector types.Selector, hook types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return add(r.hooks, selector, hook, "hook")
}

// RemoveHook deregisters a hook target.
func (r *Registry) RemoveHook(selector types.Selector, hook types.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return remove(r.hooks, selector, hook, "hook")
}

// Hooks lists the hook targets for a selector.
func (r *Registry) Hooks(selector types.Selector) []types.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return list(r.hooks, selector)
}

func add(m map[types.Selector]map[types.Address]struct{}, sel types.Selector, addr types.Address, kind string) error {
	if _, exists := m[sel][addr]; exists {
		return fmt.Errorf("%s %s for %s: %w", kind, addr, sel, types.ErrResourceAlreadyExists)
	}
	if m[sel] == nil {
		m[sel] = make(map[types.Address]struct{})
	}
	m[sel][addr] = struct{}{}
	return nil
}

func remove(m map[types.Selector]map[types.Address]struct{}, sel types.Selector, addr types.Address, kind string) error {
	if _, exists := m[sel][addr]; !exists {
		return fmt.Errorf("%s %s for %s: %w", kind, addr, sel, types.ErrResourceNotFound)
	}
	delete(m[sel], addr)
	return nil
}

func list(m map[types.Selector]map[types.Address]struct{}, sel types.Selector) []types.Address {
	out := make([]types.Address, 0, len(m[sel]))
	for addr := range m[sel] {
		out = append(out, addr)
	}
	return out
}
