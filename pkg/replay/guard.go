package replay

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/castellan-io/castellan/pkg/types"
)

// Guard holds one monotonically increasing counter per signer. Counters
// are created lazily at zero and advance by exactly one per consumed
// meta-transaction: no gaps, no reuse.
type Guard struct {
	mu     sync.RWMutex
	domain Domain
	nonces map[common.Address]uint64
}

// NewGuard creates a replay guard bound to one engine instance domain.
func NewGuard(domain Domain) *Guard {
	return &Guard{
		domain: domain,
		nonces: make(map[common.Address]uint64),
	}
}

// Domain returns the domain signatures are verified against.
func (g *Guard) Domain() Domain { return g.domain }

// NonceFor returns the signer's current nonce — the value the next
// meta-transaction must carry.
func (g *Guard) NonceFor(signer common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nonces[signer]
}

// Validate runs every check that must pass before a meta-transaction is
// consumed, in order: deadline, gas price cap, signature recovery, and
// nonce equality. It mutates nothing; a failed meta-transaction leaves
// the signer's nonce untouched.
func (g *Guard) Validate(m *types.MetaTransaction, now time.Time, gasPrice *big.Int) error {
	if now.After(m.Params.Deadline) {
		return fmt.Errorf("meta-tx deadline %s passed: %w", m.Params.Deadline.UTC().Format(time.RFC3339), types.ErrExpired)
	}

	if m.Params.MaxGasPrice != nil && m.Params.MaxGasPrice.Sign() > 0 {
		if gasPrice != nil && gasPrice.Cmp(m.Params.MaxGasPrice) > 0 {
			return fmt.Errorf("gas price %s exceeds cap %s: %w", gasPrice, m.Params.MaxGasPrice, types.ErrInvalidOperation)
		}
	}

	recovered, err := g.RecoverSigner(m)
	if err != nil {
		return err
	}
	if recovered != m.Params.Signer {
		return fmt.Errorf("recovered signer %s does not match declared %s: %w",
			recovered, m.Params.Signer, types.ErrSignerNotAuthorized)
	}

	g.mu.RLock()
	current := g.nonces[m.Params.Signer]
	g.mu.RUnlock()
	if m.Params.Nonce != current {
		return fmt.Errorf("nonce mismatch for %s: presented %d, expected %d: %w",
			m.Params.Signer, m.Params.Nonce, current, types.ErrInvalidOperation)
	}

	return nil
}

// RecoverSigner recomputes the message hash from the meta-transaction's
// fields — the presented MessageHash is never trusted — and recovers the
// signing address from the 65-byte signature.
func (g *Guard) RecoverSigner(m *types.MetaTransaction) (common.Address, error) {
	if len(m.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d: %w",
			crypto.SignatureLength, len(m.Signature), types.ErrSignerNotAuthorized)
	}

	digest := MessageHash(g.domain, m)
	pub, err := crypto.SigToPub(digest[:], m.Signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", types.ErrSignerNotAuthorized)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered == (common.Address{}) {
		return common.Address{}, fmt.Errorf("recovered zero address: %w", types.ErrSignerNotAuthorized)
	}
	return recovered, nil
}

// Consume advances the signer's nonce by exactly one. Callers must have
// validated first; Consume re-checks equality so a racing duplicate can
// never be consumed twice.
func (g *Guard) Consume(signer common.Address, presented uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.nonces[signer]
	if presented != current {
		return fmt.Errorf("nonce mismatch for %s: presented %d, expected %d: %w",
			signer, presented, current, types.ErrInvalidOperation)
	}
	g.nonces[signer] = current + 1
	return nil
}
