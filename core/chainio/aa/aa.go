// Package aa builds the calldata blobs the smart account, its factory and the
// EntryPoint expect, and derives counterfactual account addresses. Everything
// here is pure byte assembly; chain I/O stays with the callers.
package aa

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/avocetlabs/walletcore/pkg/abi"
)

var defaultSalt = big.NewInt(0)

// PackExecute encodes SimpleAccount.execute(dest, value, data).
func PackExecute(target common.Address, ethValue *big.Int, calldata []byte) ([]byte, error) {
	if ethValue == nil {
		ethValue = big.NewInt(0)
	}
	return abi.EncodeFunctionCall(executeSelector, []abi.Value{
		abi.Address(target),
		abi.Uint256(ethValue),
		abi.Bytes(calldata),
	})
}

// PackExecuteBatch encodes executeBatch(address[], uint256[], bytes[]).
// The three arrays must be the same length. The bytes[] element offsets are
// cumulative since each element is itself length-prefixed; an empty element
// still emits its zero length word.
func PackExecuteBatch(targets []common.Address, values []*big.Int, calldatas [][]byte) ([]byte, error) {
	n := len(targets)
	if len(values) != n || len(calldatas) != n {
		return nil, fmt.Errorf("aa: batch arrays disagree: %d targets, %d values, %d calldatas",
			n, len(values), len(calldatas))
	}

	word := func(v int64) []byte {
		out := make([]byte, 32)
		big.NewInt(v).FillBytes(out)
		return out
	}

	// address[] block: length word then padded elements
	addrBlock := word(int64(n))
	for _, target := range targets {
		addrBlock = append(addrBlock, common.LeftPadBytes(target.Bytes(), 32)...)
	}

	// uint256[] block
	valueBlock := word(int64(n))
	for i, v := range values {
		if v == nil {
			v = big.NewInt(0)
		}
		if v.Sign() < 0 || v.BitLen() > 256 {
			return nil, fmt.Errorf("aa: batch value %d does not fit uint256", i)
		}
		padded := make([]byte, 32)
		v.FillBytes(padded)
		valueBlock = append(valueBlock, padded...)
	}

	// bytes[] block: length word, per-element offset words, then each
	// element's own length-prefixed block
	dataBlock := word(int64(n))
	elemOffsets := make([]byte, 0, 32*n)
	var elems []byte
	for _, data := range calldatas {
		elemOffsets = append(elemOffsets, word(int64(32*n+len(elems)))...)
		elems = append(elems, encodeBytesElement(data)...)
	}
	dataBlock = append(dataBlock, elemOffsets...)
	dataBlock = append(dataBlock, elems...)

	// head: three offset words relative to the start of the arguments
	head := word(96)
	head = append(head, word(int64(96+len(addrBlock)))...)
	head = append(head, word(int64(96+len(addrBlock)+len(valueBlock)))...)

	out := make([]byte, 0, 4+len(head)+len(addrBlock)+len(valueBlock)+len(dataBlock))
	out = append(out, executeBatchSelector[:]...)
	out = append(out, head...)
	out = append(out, addrBlock...)
	out = append(out, valueBlock...)
	out = append(out, dataBlock...)
	return out, nil
}

func encodeBytesElement(data []byte) []byte {
	padded := len(data)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}
	out := make([]byte, 32+padded)
	big.NewInt(int64(len(data))).FillBytes(out[:32])
	copy(out[32:], data)
	return out
}

// GetInitCode returns the deployment init code: the raw 20 factory bytes
// followed by the createAccount(owner, salt) calldata. The factory address is
// deliberately unpadded; the EntryPoint consumes this blob as raw bytes, not
// as ABI arguments.
func GetInitCode(factory common.Address, owner common.Address, salt *big.Int) ([]byte, error) {
	if factory == (common.Address{}) {
		return nil, fmt.Errorf("aa: zero factory address")
	}
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("aa: zero owner address")
	}
	if salt == nil {
		salt = defaultSalt
	}

	calldata, err := abi.EncodeFunctionCall(createAccountSelector, []abi.Value{
		abi.Address(owner),
		abi.Uint256(salt),
	})
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, common.AddressLength+len(calldata))
	out = append(out, factory.Bytes()...)
	out = append(out, calldata...)
	return out, nil
}

// ComputeSmartWalletAddress derives the CREATE2 counterfactual address:
//
//	keccak256(0xff ‖ factory ‖ keccak256(paddedOwner ‖ paddedSalt) ‖ initCodeHash)[12:]
//
// CREATE2 consumes the combined owner/salt hash, not the raw salt.
func ComputeSmartWalletAddress(factory common.Address, owner common.Address, salt *big.Int, initCodeHash common.Hash) (common.Address, error) {
	if factory == (common.Address{}) {
		return common.Address{}, fmt.Errorf("aa: zero factory address")
	}
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("aa: zero owner address")
	}
	if salt == nil {
		salt = defaultSalt
	}
	if salt.Sign() < 0 || salt.BitLen() > 256 {
		return common.Address{}, fmt.Errorf("aa: salt does not fit uint256")
	}

	saltWord := make([]byte, 32)
	salt.FillBytes(saltWord)
	combinedSalt := crypto.Keccak256(common.LeftPadBytes(owner.Bytes(), 32), saltWord)

	buf := make([]byte, 0, 1+common.AddressLength+64)
	buf = append(buf, 0xff)
	buf = append(buf, factory.Bytes()...)
	buf = append(buf, combinedSalt...)
	buf = append(buf, initCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(buf)[12:]), nil
}

// PackGetNonce encodes the EntryPoint's getNonce(sender, key) query. A nil
// key means the default sequential namespace (key 0).
func PackGetNonce(sender common.Address, key *big.Int) ([]byte, error) {
	if key == nil {
		key = defaultSalt
	}
	if key.Sign() < 0 || key.BitLen() > 192 {
		return nil, fmt.Errorf("aa: nonce key does not fit uint192")
	}
	return abi.EncodeFunctionCall(getNonceSelector, []abi.Value{
		abi.Address(sender),
		abi.Uint256(key),
	})
}

// PackAccountGetNonce encodes the account's own parameterless getNonce().
func PackAccountGetNonce() []byte {
	return accountNonceSelector[:]
}

// PackGetDeposit encodes the account's getDeposit() query against the
// EntryPoint stake bookkeeping.
func PackGetDeposit() []byte {
	return getDepositSelector[:]
}

// DecodeUint256Response reads a single uint256 return value, as produced by
// getNonce and getDeposit.
func DecodeUint256Response(data []byte) (*big.Int, error) {
	values, err := abi.DecodeResponse(data, []abi.Kind{abi.KindUint256})
	if err != nil {
		return nil, err
	}
	n, _ := values[0].Big()
	return n, nil
}
