package schema

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Key layout:
//
//	w:<chainID>:<owner>:<salt>  smart wallet record (JSON)
//	o:<opHash>                  operation audit record (JSON)
//	c:ops:<wallet>              per-wallet submitted operation counter
//
// Addresses are stored lowercase so prefix scans are case-insensitive.

// WalletStorageKey constructs the storage key for one wallet record.
func WalletStorageKey(chainID *big.Int, owner common.Address, salt *big.Int) []byte {
	return []byte(fmt.Sprintf("w:%s:%s:%s", chainID.String(), strings.ToLower(owner.Hex()), salt.String()))
}

// WalletByOwnerPrefix returns the scan prefix for all wallets of an owner on
// a chain.
func WalletByOwnerPrefix(chainID *big.Int, owner common.Address) []byte {
	return []byte(fmt.Sprintf("w:%s:%s:", chainID.String(), strings.ToLower(owner.Hex())))
}

// WalletByChainPrefix returns the scan prefix for all wallets on a chain.
func WalletByChainPrefix(chainID *big.Int) []byte {
	return []byte(fmt.Sprintf("w:%s:", chainID.String()))
}

// OperationStorageKey constructs the storage key for an operation audit
// record.
func OperationStorageKey(opHash common.Hash) []byte {
	return []byte(fmt.Sprintf("o:%s", strings.ToLower(opHash.Hex())))
}

// OperationCounterKey is the per-wallet counter of submitted operations.
func OperationCounterKey(wallet common.Address) []byte {
	return []byte(fmt.Sprintf("c:ops:%s", strings.ToLower(wallet.Hex())))
}
