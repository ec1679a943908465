package chainio

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEntryPoint = common.HexToAddress("0x0000000071727De22E5E9d8BAf0edAc6f37da032")

type rpcCall struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newFakeNode serves canned JSON-RPC responses keyed by method name and
// records eth_call payloads.
func newFakeNode(t *testing.T, results map[string]string, calls *[]rpcCall) *ethclient.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if calls != nil {
			*calls = append(*calls, req)
		}

		result, ok := results[req.Method]
		require.True(t, ok, "unexpected rpc method %s", req.Method)

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	client, err := ethclient.Dial(server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func TestCodeAt(t *testing.T) {
	client := newFakeNode(t, map[string]string{"eth_getCode": "0x600180"}, nil)
	state := NewChainState(client, testEntryPoint)

	code, err := state.CodeAt(context.Background(), common.HexToAddress("0x5Df343de7d99fd64b2479189692C1dAb8f46184a"))
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0x600180"), code)
}

func TestGetNonceCallsEntryPoint(t *testing.T) {
	var calls []rpcCall
	nonceWord := "0x" + common.Bytes2Hex(common.LeftPadBytes(big.NewInt(42).Bytes(), 32))
	client := newFakeNode(t, map[string]string{"eth_call": nonceWord}, &calls)
	state := NewChainState(client, testEntryPoint)

	sender := common.HexToAddress("0x5Df343de7d99fd64b2479189692C1dAb8f46184a")
	nonce, err := state.GetNonce(context.Background(), sender, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, int64(42), nonce.Int64())

	require.Len(t, calls, 1)
	// ethclient marshals CallMsg.Data under the post-EIP-1474 "input" key
	var msg struct {
		To    common.Address `json:"to"`
		Input hexutil.Bytes  `json:"input"`
	}
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &msg))
	assert.Equal(t, testEntryPoint, msg.To)
	require.GreaterOrEqual(t, len(msg.Input), 4+32)
	// getNonce(address,uint192)
	assert.Equal(t, common.FromHex("0x35567e1a"), []byte(msg.Input[:4]))
	assert.Equal(t, sender.Bytes(), []byte(msg.Input[4+12:4+32]))
}

func TestChainID(t *testing.T) {
	client := newFakeNode(t, map[string]string{"eth_chainId": "0xaa36a7"}, nil)
	state := NewChainState(client, testEntryPoint)

	id, err := state.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), id.Int64())
}
