package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/castellan-io/castellan/pkg/action"
)

// MetaTxParams are the signed-over parameters of a meta-transaction:
// where it may be submitted, what it authorizes, and for how long.
type MetaTxParams struct {
	ChainID         *big.Int      `json:"chain_id"`
	HandlerContract Address       `json:"handler_contract"`
	HandlerSelector Selector      `json:"handler_selector"`
	Action          action.Action `json:"action"`
	Deadline        time.Time     `json:"deadline"`

	// MaxGasPrice caps the gas price at submission time; nil means no cap.
	MaxGasPrice *big.Int `json:"max_gas_price,omitempty"`

	// Signer is the identity expected to have produced the signature.
	// Verification recovers the signer from the signature and requires
	// an exact match.
	Signer Address `json:"signer"`

	// Nonce is the signer's replay counter at signing time. Filled in by
	// CreateUnsignedMetaTransaction.
	Nonce uint64 `json:"nonce"`
}

// MetaTransaction bundles a proposed or existing transaction with its
// signed authorization. It is consumed exactly once: the replay guard
// advances the signer's nonce on consumption, invalidating the
// signature for any further submission.
type MetaTransaction struct {
	// TxParams describes a transaction to be created (request-and-approve
	// workflow). Zero when the meta-transaction targets an existing record.
	TxParams TxParams `json:"tx_params"`

	// TxID references an existing pending record (approve/cancel
	// workflows). Zero when TxParams is used instead.
	TxID TxID `json:"tx_id"`

	Params MetaTxParams `json:"params"`

	// MessageHash is the deterministic, domain-separated hash the signer
	// signed. Recomputed and checked on consumption; never trusted as
	// presented.
	MessageHash common.Hash `json:"message_hash"`

	// Signature is the 65-byte [R || S || V] secp256k1 signature over
	// MessageHash.
	Signature []byte `json:"signature,omitempty"`
}

// IsNewTransaction reports whether the meta-transaction proposes a new
// record rather than referencing an existing one.
func (m *MetaTransaction) IsNewTransaction() bool { return m.TxID == 0 }
