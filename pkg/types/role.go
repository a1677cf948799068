package types

import "github.com/castellan-io/castellan/pkg/action"

// PermissionKind discriminates what a FunctionPermission authorizes.
// Handler permissions gate the externally invoked entry point; execution
// permissions gate the underlying operation it ultimately performs. A
// selector that is legitimately both carries two separate permissions.
type PermissionKind uint8

const (
	KindHandler PermissionKind = iota
	KindExecution
)

func (k PermissionKind) String() string {
	switch k {
	case KindHandler:
		return "HANDLER"
	case KindExecution:
		return "EXECUTION"
	}
	return "UNKNOWN"
}

// FunctionPermission pairs a function selector with the actions a role
// may perform on it. For handler permissions, HandlerFor lists the
// execution selectors this grant also authorizes; both sides of the
// dual-permission check must independently grant the action.
type FunctionPermission struct {
	Selector    Selector              `json:"selector"`
	Kind        PermissionKind        `json:"kind"`
	Grants      action.Bitmap         `json:"grants"`
	HandlerFor  map[Selector]struct{} `json:"-"`
	SelfService bool                  `json:"self_service,omitempty"`
}

// Authorizes reports whether this handler permission extends to the
// given execution selector.
func (p *FunctionPermission) Authorizes(execution Selector) bool {
	if p.Kind == KindExecution {
		return p.Selector == execution
	}
	_, ok := p.HandlerFor[execution]
	return ok
}

// Clone deep-copies the permission.
func (p *FunctionPermission) Clone() *FunctionPermission {
	c := *p
	c.HandlerFor = make(map[Selector]struct{}, len(p.HandlerFor))
	for sel := range p.HandlerFor {
		c.HandlerFor[sel] = struct{}{}
	}
	return &c
}

// Role groups wallets under a named capability set. Protected roles are
// system roles that cannot be deleted or lose protection.
type Role struct {
	Hash        RoleHash                         `json:"hash"`
	Name        string                           `json:"name"`
	MaxWallets  int                              `json:"max_wallets"`
	Wallets     map[Address]struct{}             `json:"-"`
	Permissions map[Selector]*FunctionPermission `json:"-"`
	Protected   bool                             `json:"protected"`
}

// HasWallet reports whether the wallet is a member of the role.
func (r *Role) HasWallet(w Address) bool {
	_, ok := r.Wallets[w]
	return ok
}

// Clone deep-copies the role, including membership and permissions.
func (r *Role) Clone() *Role {
	c := *r
	c.Wallets = make(map[Address]struct{}, len(r.Wallets))
	for w := range r.Wallets {
		c.Wallets[w] = struct{}{}
	}
	c.Permissions = make(map[Selector]*FunctionPermission, len(r.Permissions))
	for sel, p := range r.Permissions {
		c.Permissions[sel] = p.Clone()
	}
	return &c
}
