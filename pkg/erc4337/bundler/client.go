// Package bundler provides primitives to work with an ERC-4337 bundler RPC.
// Bundler RPC is stateless.
package bundler

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
)

// BundlerClient is a client for an ERC-4337 bundler RPC endpoint.
type BundlerClient struct {
	client *rpc.Client
	url    string
}

// NewBundlerClient connects to the given URL. DialHTTP also accepts other
// schemes such as WebSocket.
func NewBundlerClient(url string) (*BundlerClient, error) {
	c, err := rpc.DialHTTP(url)
	if err != nil {
		return nil, fmt.Errorf("error creating bundler client: %w", err)
	}
	return &BundlerClient{client: c, url: url}, nil
}

func (bc *BundlerClient) Close() {
	bc.client.Close()
}

// SendUserOperation submits a signed operation to the bundler mempool and
// returns the operation hash the bundler computed for it.
func (bc *BundlerClient) SendUserOperation(
	ctx context.Context,
	op *userop.UserOperation,
	entrypoint common.Address,
) (common.Hash, error) {
	wire, err := op.ToWire()
	if err != nil {
		return common.Hash{}, err
	}

	var result string
	if err := bc.client.CallContext(ctx, &result, "eth_sendUserOperation", wire, entrypoint.Hex()); err != nil {
		return common.Hash{}, fmt.Errorf("eth_sendUserOperation: %w", err)
	}
	return common.HexToHash(result), nil
}

// EstimateUserOperationGas asks the bundler for the gas limits an operation
// needs. Gas fields on op may be zero; the signature only has to be the
// right length, not valid. The optional override set behaves like the one
// eth_call accepts.
func (bc *BundlerClient) EstimateUserOperationGas(
	ctx context.Context,
	op *userop.UserOperation,
	entrypoint common.Address,
	override map[string]any,
) (*GasEstimation, error) {
	wire, err := op.ToWire()
	if err != nil {
		return nil, err
	}
	if override == nil {
		override = map[string]any{}
	}

	var result GasEstimation
	if err := bc.client.CallContext(ctx, &result, "eth_estimateUserOperationGas", wire, entrypoint.Hex(), override); err != nil {
		return nil, fmt.Errorf("eth_estimateUserOperationGas: %w", err)
	}
	return &result, nil
}

// GetUserOperationByHash looks an operation up in the bundler mempool or on
// chain. A nil result means the bundler has never seen the hash.
func (bc *BundlerClient) GetUserOperationByHash(ctx context.Context, hash common.Hash) (*OperationLookup, error) {
	var lookup *OperationLookup
	if err := bc.client.CallContext(ctx, &lookup, "eth_getUserOperationByHash", hash.Hex()); err != nil {
		return nil, fmt.Errorf("eth_getUserOperationByHash: %w", err)
	}
	return lookup, nil
}

// GetUserOperationReceipt fetches the receipt of an executed operation. A
// nil result means the operation has not been included yet.
func (bc *BundlerClient) GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*OperationReceipt, error) {
	var receipt *OperationReceipt
	if err := bc.client.CallContext(ctx, &receipt, "eth_getUserOperationReceipt", hash.Hex()); err != nil {
		return nil, fmt.Errorf("eth_getUserOperationReceipt: %w", err)
	}
	return receipt, nil
}

// SupportedEntryPoints returns the EntryPoint contracts the bundler serves.
func (bc *BundlerClient) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var raw []string
	if err := bc.client.CallContext(ctx, &raw, "eth_supportedEntryPoints"); err != nil {
		return nil, fmt.Errorf("eth_supportedEntryPoints: %w", err)
	}

	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("bundler returned malformed entrypoint %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}
