package bundler

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
)

func TestGasEstimation_Apply(t *testing.T) {
	var est GasEstimation
	payload := `{
		"preVerificationGas": "0xafc8",
		"verificationGasLimit": "0x186a0",
		"callGasLimit": "0x5208",
		"paymasterVerificationGasLimit": "0x186a0"
	}`
	require.NoError(t, json.Unmarshal([]byte(payload), &est))

	op := &userop.UserOperation{PreVerificationGas: big.NewInt(1)}
	est.Apply(op)

	assert.Equal(t, int64(45000), op.PreVerificationGas.Int64())
	assert.Equal(t, int64(100_000), op.VerificationGasLimit.Int64())
	assert.Equal(t, int64(21000), op.CallGasLimit.Int64())
	assert.Equal(t, int64(100_000), op.PaymasterVerificationGasLimit.Int64())
	assert.Nil(t, op.PaymasterPostOpGasLimit, "absent field is left alone")
}

func TestOperationLookup_Included(t *testing.T) {
	var pending OperationLookup
	require.NoError(t, json.Unmarshal([]byte(`{"entryPoint":"0x0000000071727De22E5E9d8BAf0edAc6f37da032","blockNumber":null}`), &pending))
	assert.False(t, pending.Included())

	var mined OperationLookup
	require.NoError(t, json.Unmarshal([]byte(`{"entryPoint":"0x0000000071727De22E5E9d8BAf0edAc6f37da032","blockNumber":"0x4cb2f"}`), &mined))
	assert.True(t, mined.Included())
}

func TestOperationReceipt_Decode(t *testing.T) {
	payload := `{
		"userOpHash": "0x93c06f3f5909cc2b192713ed9bf93e3e1fde4b22fcd2466304fa404f9b80ff90",
		"sender": "0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557",
		"nonce": "0x7",
		"actualGasCost": "0x2162f90fd23",
		"actualGasUsed": "0x249f0",
		"success": false,
		"reason": "AA21 didn't pay prefund"
	}`

	var receipt OperationReceipt
	require.NoError(t, json.Unmarshal([]byte(payload), &receipt))

	assert.False(t, receipt.Success)
	assert.Equal(t, "AA21 didn't pay prefund", receipt.Reason)
	assert.Equal(t, int64(7), receipt.Nonce.ToInt().Int64())
	assert.Nil(t, receipt.Paymaster)
}

func testLogger(t *testing.T) sdklogging.Logger {
	t.Helper()
	logger, err := sdklogging.NewZapLogger("development")
	require.NoError(t, err)
	return logger
}

func TestNonceManager(t *testing.T) {
	sender := common.HexToAddress("0x804e49e8C4eDb560AE7c48B554f6d2e27Bb81557")
	onChain := big.NewInt(5)
	fetcher := func() (*big.Int, error) { return new(big.Int).Set(onChain), nil }

	nm := NewNonceManager(testLogger(t))

	// first sight uses on-chain state
	nonce, err := nm.GetNextNonce(sender, fetcher)
	require.NoError(t, err)
	assert.Equal(t, int64(5), nonce.Int64())

	// pending submissions advance the cache ahead of the chain
	nm.IncrementNonce(sender, nonce)
	nonce, err = nm.GetNextNonce(sender, fetcher)
	require.NoError(t, err)
	assert.Equal(t, int64(6), nonce.Int64())

	// chain catching up past the cache wins
	onChain = big.NewInt(9)
	nonce, err = nm.GetNextNonce(sender, fetcher)
	require.NoError(t, err)
	assert.Equal(t, int64(9), nonce.Int64())

	// reset forgets the cache entirely
	nm.IncrementNonce(sender, nonce)
	nm.ResetNonce(sender)
	_, cached := nm.GetCachedNonce(sender)
	assert.False(t, cached)

	// fetcher failures surface
	boom := errors.New("rpc down")
	_, err = nm.GetNextNonce(sender, func() (*big.Int, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}
