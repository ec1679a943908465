package userop

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testEntryPoint = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")
	testSender     = common.HexToAddress("0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557")
)

func sampleOp() *UserOperation {
	return &UserOperation{
		Sender:               testSender,
		Nonce:                big.NewInt(7),
		InitCode:             nil,
		CallData:             common.FromHex("0xb61d27f6"),
		CallGasLimit:         big.NewInt(200000),
		VerificationGasLimit: big.NewInt(1000000),
		PreVerificationGas:   big.NewInt(50000),
		MaxFeePerGas:         big.NewInt(20_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(2_000_000_000),
		PaymasterAndData:     nil,
		Signature:            nil,
	}
}

func TestGetUserOpHash_Deterministic(t *testing.T) {
	op := sampleOp()
	chainID := big.NewInt(11155111)

	h1, err := op.GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)
	h2, err := op.GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestGetUserOpHash_EveryFieldMatters(t *testing.T) {
	chainID := big.NewInt(1)
	base, err := sampleOp().GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)

	mutations := map[string]func(*UserOperation){
		"sender":               func(op *UserOperation) { op.Sender = common.HexToAddress("0x01") },
		"nonce":                func(op *UserOperation) { op.Nonce = big.NewInt(8) },
		"initCode":             func(op *UserOperation) { op.InitCode = []byte{0x01} },
		"callData":             func(op *UserOperation) { op.CallData = append(op.CallData, 0x00) },
		"callGasLimit":         func(op *UserOperation) { op.CallGasLimit = big.NewInt(200001) },
		"verificationGasLimit": func(op *UserOperation) { op.VerificationGasLimit = big.NewInt(1000001) },
		"preVerificationGas":   func(op *UserOperation) { op.PreVerificationGas = big.NewInt(50001) },
		"maxFeePerGas":         func(op *UserOperation) { op.MaxFeePerGas = big.NewInt(20_000_000_001) },
		"maxPriorityFeePerGas": func(op *UserOperation) { op.MaxPriorityFeePerGas = big.NewInt(2_000_000_001) },
		"paymasterAndData":     func(op *UserOperation) { op.PaymasterAndData = []byte{0x01} },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			op := sampleOp()
			mutate(op)
			h, err := op.GetUserOpHash(testEntryPoint, chainID)
			require.NoError(t, err)
			assert.NotEqual(t, base, h, "mutating %s must change the hash", name)
		})
	}
}

func TestGetUserOpHash_SingleBitOfPaymasterData(t *testing.T) {
	chainID := big.NewInt(1)

	op := sampleOp()
	op.PaymasterAndData = make([]byte, 52)
	h1, err := op.GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)

	op.PaymasterAndData[51] ^= 0x01
	h2, err := op.GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestGetUserOpHash_ChainIDBinding(t *testing.T) {
	op := sampleOp()

	mainnet, err := op.GetUserOpHash(testEntryPoint, big.NewInt(1))
	require.NoError(t, err)
	base, err := op.GetUserOpHash(testEntryPoint, big.NewInt(8453))
	require.NoError(t, err)
	assert.NotEqual(t, mainnet, base, "same op on two chains must sign different digests")

	otherEP, err := op.GetUserOpHash(common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"), big.NewInt(1))
	require.NoError(t, err)
	assert.NotEqual(t, mainnet, otherEP, "entry point address is part of the domain")
}

// Golden layout check: an operation with all-zero gas and fee fields and
// empty blobs must hash exactly as the manually assembled packing predicts.
func TestGetUserOpHash_GoldenLayout(t *testing.T) {
	op := &UserOperation{
		Sender: testSender,
		Nonce:  big.NewInt(1),
	}
	chainID := big.NewInt(11155111)

	got, err := op.GetUserOpHash(testEntryPoint, chainID)
	require.NoError(t, err)

	emptyHash := crypto.Keccak256(nil)
	zeroWord := make([]byte, 32)

	var packed []byte
	packed = append(packed, common.LeftPadBytes(testSender.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(big.NewInt(1).Bytes(), 32)...)
	packed = append(packed, emptyHash...) // initCode
	packed = append(packed, emptyHash...) // callData
	packed = append(packed, zeroWord...)  // accountGasLimits
	packed = append(packed, zeroWord...)  // preVerificationGas
	packed = append(packed, zeroWord...)  // gasFees
	packed = append(packed, emptyHash...) // paymasterAndData
	require.Len(t, packed, 256)

	var domain []byte
	domain = append(domain, crypto.Keccak256(packed)...)
	domain = append(domain, common.LeftPadBytes(testEntryPoint.Bytes(), 32)...)
	domain = append(domain, common.LeftPadBytes(chainID.Bytes(), 32)...)

	assert.Equal(t, crypto.Keccak256Hash(domain), got)
}

func TestPackForHash_GasWordHalves(t *testing.T) {
	op := sampleOp()
	op.VerificationGasLimit = big.NewInt(0x1111)
	op.CallGasLimit = big.NewInt(0x2222)
	op.MaxPriorityFeePerGas = big.NewInt(0x3333)
	op.MaxFeePerGas = big.NewInt(0x4444)

	packed, err := op.PackForHash()
	require.NoError(t, err)
	require.Len(t, packed, 256)

	accountGasLimits := packed[128:160]
	assert.Equal(t, int64(0x1111), new(big.Int).SetBytes(accountGasLimits[:16]).Int64(), "verification gas in high half")
	assert.Equal(t, int64(0x2222), new(big.Int).SetBytes(accountGasLimits[16:]).Int64(), "call gas in low half")

	gasFees := packed[192:224]
	assert.Equal(t, int64(0x3333), new(big.Int).SetBytes(gasFees[:16]).Int64(), "priority fee in high half")
	assert.Equal(t, int64(0x4444), new(big.Int).SetBytes(gasFees[16:]).Int64(), "max fee in low half")
}

func TestPackForHash_Rejects129BitHalf(t *testing.T) {
	op := sampleOp()
	op.CallGasLimit = new(big.Int).Lsh(big.NewInt(1), 128)

	_, err := op.PackForHash()
	require.Error(t, err)
}

func TestInvariants(t *testing.T) {
	op := sampleOp()
	assert.False(t, op.IsDeployment())
	assert.False(t, op.UsesPaymaster())

	op.InitCode = common.FromHex("0x29adA1b5217242DEaBB142BC3b1bCfFdd56008e75fbfb9cf")
	op.PaymasterAndData = make([]byte, 21)
	assert.True(t, op.IsDeployment())
	assert.True(t, op.UsesPaymaster())
}

func TestCopy_IsDeep(t *testing.T) {
	op := sampleOp()
	op.PaymasterAndData = []byte{0x01, 0x02}

	dup := op.Copy()
	dup.Nonce.SetInt64(99)
	dup.PaymasterAndData[0] = 0xff
	dup.CallData = append(dup.CallData, 0xaa)

	assert.Equal(t, int64(7), op.Nonce.Int64())
	assert.Equal(t, byte(0x01), op.PaymasterAndData[0])
	assert.Len(t, op.CallData, 4)
}

func TestWire_SelfPayingDeployedOp(t *testing.T) {
	op := sampleOp()
	w, err := op.ToWire()
	require.NoError(t, err)

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Equal(t, "null", string(fields["factory"]), "deployed account carries no factory")
	assert.Equal(t, "null", string(fields["paymaster"]), "self-paying op carries no paymaster")
	assert.Equal(t, `"0x7"`, string(fields["nonce"]), "quantities are minimal hex")
}

func TestWire_SplitsAndRejoins(t *testing.T) {
	factory := common.HexToAddress("0x29adA1b5217242DEaBB142BC3b1bCfFdd56008e7")
	paymaster := common.HexToAddress("0x1234000000000000000000000000000000005678")

	op := sampleOp()
	op.InitCode = append(factory.Bytes(), common.FromHex("0x5fbfb9cf1122")...)
	op.PaymasterAndData = append(paymaster.Bytes(), 0xde, 0xad)
	op.PaymasterVerificationGasLimit = big.NewInt(300000)
	op.PaymasterPostOpGasLimit = big.NewInt(10000)
	op.Signature = []byte{0x01}

	w, err := op.ToWire()
	require.NoError(t, err)
	require.NotNil(t, w.Factory)
	assert.Equal(t, factory, *w.Factory)
	assert.Equal(t, common.FromHex("0x5fbfb9cf1122"), []byte(*w.FactoryData))
	require.NotNil(t, w.Paymaster)
	assert.Equal(t, paymaster, *w.Paymaster)
	assert.Equal(t, []byte{0xde, 0xad}, []byte(*w.PaymasterData))

	back := FromWire(w)
	assert.Equal(t, op.InitCode, back.InitCode)
	assert.Equal(t, op.PaymasterAndData, back.PaymasterAndData)
	assert.Equal(t, 0, op.Nonce.Cmp(back.Nonce))
	assert.Equal(t, 0, op.PaymasterVerificationGasLimit.Cmp(back.PaymasterVerificationGasLimit))
}

func TestWire_ShortBlobsRejected(t *testing.T) {
	op := sampleOp()
	op.InitCode = []byte{0x01, 0x02}
	_, err := op.ToWire()
	require.Error(t, err)

	op = sampleOp()
	op.PaymasterAndData = []byte{0x01}
	_, err = op.ToWire()
	require.Error(t, err)
}

func TestLegacyWire(t *testing.T) {
	op := sampleOp()
	lw := op.ToLegacyWire()

	assert.Equal(t, "0x7", lw.Nonce)
	assert.Equal(t, "0x", lw.InitCode)
	assert.Equal(t, "0xb61d27f6", lw.CallData)
	assert.Equal(t, "0x4a817c800", lw.MaxFeePerGas)
}
