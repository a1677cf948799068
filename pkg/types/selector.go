// Package types holds the shared domain model of the authorization
// engine: transaction records, roles, permissions, function schemas,
// meta-transactions, and the error taxonomy.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Address identifies a wallet or contract instance.
type Address = common.Address

// Selector identifies a function: the first four bytes of the keccak256
// hash of its canonical signature.
type Selector [4]byte

// SelectorFromSignature derives the selector of a canonical signature
// string such as "transferOwnership(address)".
func SelectorFromSignature(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

// ParseSelector decodes a 0x-prefixed or bare 8-hex-digit selector.
func ParseSelector(s string) (Selector, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Selector{}, fmt.Errorf("parse selector %q: %w", s, err)
	}
	if len(raw) != 4 {
		return Selector{}, fmt.Errorf("parse selector: expected 4 bytes, got %d", len(raw))
	}
	var sel Selector
	copy(sel[:], raw)
	return sel, nil
}

func (s Selector) String() string { return "0x" + hex.EncodeToString(s[:]) }

// IsZero reports whether the selector is unset.
func (s Selector) IsZero() bool { return s == Selector{} }

// OperationType is a coarse category hash grouping related operations
// (e.g. everything under "OWNERSHIP_TRANSFER").
type OperationType = common.Hash

// OperationTypeFromName derives an operation type from its human name.
func OperationTypeFromName(name string) OperationType {
	return crypto.Keccak256Hash([]byte(name))
}

// RoleHash identifies a role, derived deterministically from its name.
type RoleHash = common.Hash

// RoleHashFromName derives a role hash from the human-readable role name.
func RoleHashFromName(name string) RoleHash {
	return crypto.Keccak256Hash([]byte(name))
}
