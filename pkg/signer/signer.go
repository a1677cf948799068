// Package signer wraps secp256k1 key handling for producing the 65-byte
// recoverable signatures the replay guard verifies. It is the client
// side of the meta-transaction workflow and the signing half of tests.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds one secp256k1 key pair.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// New generates a fresh key pair.
func New() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromKey(key), nil
}

// FromHex builds a wallet from a 32-byte hex-encoded private key, with
// or without 0x prefix.
func FromHex(privateKeyHex string) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return fromKey(key), nil
}

func fromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the wallet address derived from the public key.
func (w *Wallet) Address() common.Address { return w.address }

// SignHash signs a 32-byte digest, returning the [R || S || V]
// recoverable signature.
func (w *Wallet) SignHash(digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest[:], w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign hash: %w", err)
	}
	return sig, nil
}
