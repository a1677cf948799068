package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignHashRecoversToAddress(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("castellan test message"))
	sig, err := w.SignHash(digest)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	pub, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), crypto.PubkeyToAddress(*pub))
}

func TestFromHex(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	// Round-trip through hex encoding.
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(w.privateKey))
	w2, err := FromHex(hexKey)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), w2.Address())

	_, err = FromHex("not-a-key")
	assert.Error(t, err)
}
