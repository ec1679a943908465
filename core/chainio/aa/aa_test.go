package aa

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocetlabs/walletcore/pkg/abi"
)

var (
	testFactory = common.HexToAddress("0xB99BC2E399e06CddCF5E725c0ea341E8f0322834")
	testOwner   = common.HexToAddress("0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557")
)

func TestPackExecute_Layout(t *testing.T) {
	dest := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA1111")
	transfer := common.FromHex("0xa9059cbb") // ERC-20 transfer selector as inner payload

	calldata, err := PackExecute(dest, big.NewInt(0), transfer)
	require.NoError(t, err)

	assert.Equal(t, "b61d27f6", hex.EncodeToString(calldata[:4]))
	assert.Equal(t, dest.Bytes(), calldata[4+12:4+32], "destination slot stripped of padding")
	assert.Equal(t, int64(0), new(big.Int).SetBytes(calldata[4+32:4+64]).Int64())
	assert.Equal(t, int64(96), new(big.Int).SetBytes(calldata[4+64:4+96]).Int64(), "offset to dynamic bytes")
	assert.Equal(t, int64(4), new(big.Int).SetBytes(calldata[4+96:4+128]).Int64(), "payload length")
	assert.Equal(t, transfer, calldata[4+128:4+132])
}

// replayBatch walks an executeBatch encoding and returns the element counts
// and per-element data lengths it declares.
func replayBatch(t *testing.T, calldata []byte) (addrs int, values int, dataLens []int) {
	t.Helper()
	require.Equal(t, "47e1da2a", hex.EncodeToString(calldata[:4]))
	args := calldata[4:]

	readWord := func(at int) int64 {
		require.LessOrEqual(t, at+32, len(args))
		return new(big.Int).SetBytes(args[at : at+32]).Int64()
	}

	addrOff := int(readWord(0))
	valOff := int(readWord(32))
	dataOff := int(readWord(64))

	addrs = int(readWord(addrOff))
	values = int(readWord(valOff))
	n := int(readWord(dataOff))
	for i := 0; i < n; i++ {
		elemOff := int(readWord(dataOff + 32 + 32*i))
		elemLen := int(readWord(dataOff + 32 + elemOff))
		dataLens = append(dataLens, elemLen)
	}
	return addrs, values, dataLens
}

func TestPackExecuteBatch_Replay(t *testing.T) {
	tests := []struct {
		name  string
		datas [][]byte
	}{
		{"empty batch", nil},
		{"single call", [][]byte{common.FromHex("0xa9059cbb")}},
		{"empty call keeps length word", [][]byte{nil, common.FromHex("0xdeadbeef"), nil}},
		{"boundary payloads", [][]byte{make([]byte, 31), make([]byte, 32), make([]byte, 33)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.datas)
			targets := make([]common.Address, n)
			values := make([]*big.Int, n)
			for i := range targets {
				targets[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
				values[i] = big.NewInt(int64(i))
			}

			calldata, err := PackExecuteBatch(targets, values, tc.datas)
			require.NoError(t, err)

			addrs, vals, dataLens := replayBatch(t, calldata)
			assert.Equal(t, n, addrs)
			assert.Equal(t, n, vals)
			require.Len(t, dataLens, n)
			for i, data := range tc.datas {
				assert.Equal(t, len(data), dataLens[i], "declared length of element %d", i)
			}
		})
	}
}

func TestPackExecuteBatch_LengthMismatch(t *testing.T) {
	_, err := PackExecuteBatch(
		[]common.Address{testOwner},
		[]*big.Int{big.NewInt(0), big.NewInt(1)},
		[][]byte{nil},
	)
	require.Error(t, err)
}

func TestGetInitCode_FactoryUnpadded(t *testing.T) {
	initCode, err := GetInitCode(testFactory, testOwner, big.NewInt(5))
	require.NoError(t, err)

	// 20 raw factory bytes, then selector, then two padded words
	require.Len(t, initCode, 20+4+64)
	assert.Equal(t, testFactory.Bytes(), initCode[:20])
	assert.Equal(t, "5fbfb9cf", hex.EncodeToString(initCode[20:24]))
	assert.Equal(t, testOwner.Bytes(), initCode[24+12:24+32])
	assert.Equal(t, int64(5), new(big.Int).SetBytes(initCode[24+32:24+64]).Int64())
}

func TestGetInitCode_RejectsZeroAddresses(t *testing.T) {
	_, err := GetInitCode(common.Address{}, testOwner, nil)
	require.Error(t, err)

	_, err = GetInitCode(testFactory, common.Address{}, nil)
	require.Error(t, err)
}

func TestComputeSmartWalletAddress_CREATE2Formula(t *testing.T) {
	salt := big.NewInt(0)
	initCodeHash := crypto.Keccak256Hash([]byte("account creation code"))

	computed, err := ComputeSmartWalletAddress(testFactory, testOwner, salt, initCodeHash)
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, computed)

	again, err := ComputeSmartWalletAddress(testFactory, testOwner, salt, initCodeHash)
	require.NoError(t, err)
	assert.Equal(t, computed, again, "derivation is deterministic")

	// manual CREATE2 with the combined owner/salt hash
	saltWord := make([]byte, 32)
	salt.FillBytes(saltWord)
	combinedSalt := crypto.Keccak256(common.LeftPadBytes(testOwner.Bytes(), 32), saltWord)

	var b []byte
	b = append(b, 0xff)
	b = append(b, testFactory.Bytes()...)
	b = append(b, combinedSalt...)
	b = append(b, initCodeHash.Bytes()...)
	expected := common.BytesToAddress(crypto.Keccak256(b)[12:])

	assert.Equal(t, expected, computed)
}

func TestComputeSmartWalletAddress_InputSensitivity(t *testing.T) {
	salt := big.NewInt(0)
	initCodeHash := crypto.Keccak256Hash([]byte("account creation code"))

	base, err := ComputeSmartWalletAddress(testFactory, testOwner, salt, initCodeHash)
	require.NoError(t, err)

	otherFactory, err := ComputeSmartWalletAddress(common.HexToAddress("0x01"), testOwner, salt, initCodeHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherFactory)

	otherOwner, err := ComputeSmartWalletAddress(testFactory, common.HexToAddress("0x02"), salt, initCodeHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherOwner)

	otherSalt, err := ComputeSmartWalletAddress(testFactory, testOwner, big.NewInt(1), initCodeHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherSalt)

	otherHash := initCodeHash
	otherHash[31] ^= 0x01
	otherInit, err := ComputeSmartWalletAddress(testFactory, testOwner, salt, otherHash)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherInit)
}

func TestComputeSmartWalletAddress_InvalidInputs(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("x"))

	_, err := ComputeSmartWalletAddress(common.Address{}, testOwner, nil, hash)
	require.Error(t, err)

	_, err = ComputeSmartWalletAddress(testFactory, common.Address{}, nil, hash)
	require.Error(t, err)
}

func TestPackGetNonce(t *testing.T) {
	calldata, err := PackGetNonce(testOwner, nil)
	require.NoError(t, err)

	require.Len(t, calldata, 4+64)
	assert.Equal(t, "35567e1a", hex.EncodeToString(calldata[:4]))
	assert.Equal(t, testOwner.Bytes(), calldata[4+12:4+32])
	assert.Equal(t, int64(0), new(big.Int).SetBytes(calldata[4+32:4+64]).Int64(), "default key")

	tooWide := new(big.Int).Lsh(big.NewInt(1), 192)
	_, err = PackGetNonce(testOwner, tooWide)
	require.Error(t, err)
}

func TestDecodeUint256Response(t *testing.T) {
	word := make([]byte, 32)
	word[31] = 42
	n, err := DecodeUint256Response(word)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n.Int64())

	_, err = DecodeUint256Response([]byte{0x01})
	require.Error(t, err)
}

func TestDecodeRevertReason(t *testing.T) {
	reverted, err := abi.EncodeFunctionCall(errorStringSelector, []abi.Value{
		abi.String("AA21 didn't pay prefund"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AA21 didn't pay prefund", DecodeRevertReason(reverted))

	assert.Equal(t, ReasonUnknown, DecodeRevertReason(nil))
	assert.Equal(t, ReasonUnknown, DecodeRevertReason([]byte{0x01, 0x02}))
	assert.Equal(t, ReasonUnknown, DecodeRevertReason(common.FromHex("0xdeadbeef00")))

	// right selector but truncated payload still comes back unknown
	assert.Equal(t, ReasonUnknown, DecodeRevertReason(reverted[:8]))
}

func TestCalldataCompressionUnsupported(t *testing.T) {
	_, err := CompressCalldata([]byte{0x01})
	require.ErrorIs(t, err, ErrCompressionUnsupported)

	_, err = DecompressCalldata([]byte{0x01})
	require.ErrorIs(t, err, ErrCompressionUnsupported)
}
