// Package chainio exposes the on-chain reads the operation builder needs,
// backed by a standard eth JSON-RPC endpoint.
package chainio

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/avocetlabs/walletcore/core/chainio/aa"
	"github.com/avocetlabs/walletcore/pkg/eip1559"
)

// ChainState answers code, nonce, fee and chain-id queries against a live
// node. It satisfies the builder's read-only chain interface.
type ChainState struct {
	client     *ethclient.Client
	entryPoint common.Address
}

func NewChainState(client *ethclient.Client, entryPoint common.Address) *ChainState {
	return &ChainState{client: client, entryPoint: entryPoint}
}

// CodeAt returns the deployed bytecode at account, empty for a
// counterfactual wallet.
func (c *ChainState) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return c.client.CodeAt(ctx, account, nil)
}

// GetNonce reads the sender's nonce for the given key from the EntryPoint.
func (c *ChainState) GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error) {
	calldata, err := aa.PackGetNonce(sender, key)
	if err != nil {
		return nil, err
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.entryPoint,
		Data: calldata,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("entrypoint getNonce call failed: %w", err)
	}

	return aa.DecodeUint256Response(result)
}

// SuggestFees returns an EIP-1559 fee pair with headroom over the current
// base fee.
func (c *ChainState) SuggestFees(ctx context.Context) (*big.Int, *big.Int, error) {
	return eip1559.SuggestFee(ctx, c.client)
}

func (c *ChainState) ChainID(ctx context.Context) (*big.Int, error) {
	return c.client.ChainID(ctx)
}
