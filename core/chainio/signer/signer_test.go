package signer

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignMessageRecoversToSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	data := []byte("hello world")
	sig, err := SignMessage(key, data)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	// recover over the same EIP-191 envelope
	prefixed := append([]byte(eip191Prefix+fmt.Sprint(len(data))), data...)
	hash := crypto.Keccak256Hash(prefixed)

	recovery := make([]byte, 65)
	copy(recovery, sig)
	recovery[64] -= 27
	pub, err := crypto.SigToPub(hash.Bytes(), recovery)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(*pub))
}

func TestKeySignerAddressAndSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	s := NewKeySigner(key)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), s.Address())

	opHash := crypto.Keccak256Hash([]byte("user operation"))
	sig, err := s.SignUserOpHash(opHash)
	require.NoError(t, err)

	// KeySigner signs the hash bytes as a 32-byte personal message
	want, err := SignMessage(key, opHash.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, sig)
}

func TestSignMessageAsHex(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	hexSig, err := SignMessageAsHex(key, []byte("payload"))
	require.NoError(t, err)
	assert.Len(t, common.Hex2Bytes(hexSig), 65)
}

func TestFromPrivateKeyHexStripsPrefix(t *testing.T) {
	const keyHex = "fad9c8855b740a0b7ed4c221dbad0f33a83a49cad6b3fe8d5817ac83d38b6a19"

	opts, err := FromPrivateKeyHex("0x"+keyHex, common.Big1)
	require.NoError(t, err)

	bare, err := FromPrivateKeyHex(keyHex, common.Big1)
	require.NoError(t, err)
	assert.Equal(t, opts.From, bare.From)

	_, err = FromPrivateKeyHex("zz", common.Big1)
	assert.Error(t, err)
}
