// Package userop holds the ERC-4337 user operation record and its canonical
// signing hash. The packing must be bit-exact with what the EntryPoint
// recomputes on-chain; any drift here produces signatures that are valid
// against the wrong digest.
package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation represents an EIP-4337 transaction for a smart contract
// account. Numeric fields are big.Int because every one of them is a uint256
// on the wire even when the realistic range is far smaller.
type UserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte

	// Reported by sponsoring paymasters using the split wire shape. They
	// ride along for wire encoding only; the canonical hash covers the
	// combined PaymasterAndData blob.
	PaymasterVerificationGasLimit *big.Int
	PaymasterPostOpGasLimit       *big.Int
}

// IsDeployment reports whether this operation deploys the sender account.
func (op *UserOperation) IsDeployment() bool {
	return len(op.InitCode) > 0
}

// UsesPaymaster reports whether a paymaster sponsors this operation.
func (op *UserOperation) UsesPaymaster() bool {
	return len(op.PaymasterAndData) > 0
}

// Copy returns a deep copy so callers can treat built operations as
// immutable snapshots.
func (op *UserOperation) Copy() *UserOperation {
	dup := *op
	dup.InitCode = append([]byte(nil), op.InitCode...)
	dup.CallData = append([]byte(nil), op.CallData...)
	dup.PaymasterAndData = append([]byte(nil), op.PaymasterAndData...)
	dup.Signature = append([]byte(nil), op.Signature...)
	for _, p := range []struct {
		dst **big.Int
		src *big.Int
	}{
		{&dup.Nonce, op.Nonce},
		{&dup.CallGasLimit, op.CallGasLimit},
		{&dup.VerificationGasLimit, op.VerificationGasLimit},
		{&dup.PreVerificationGas, op.PreVerificationGas},
		{&dup.MaxFeePerGas, op.MaxFeePerGas},
		{&dup.MaxPriorityFeePerGas, op.MaxPriorityFeePerGas},
		{&dup.PaymasterVerificationGasLimit, op.PaymasterVerificationGasLimit},
		{&dup.PaymasterPostOpGasLimit, op.PaymasterPostOpGasLimit},
	} {
		if p.src != nil {
			*p.dst = new(big.Int).Set(p.src)
		}
	}
	return &dup
}

// packUintPair packs two 128-bit quantities into one 32-byte word, hi in the
// upper half and lo in the lower half, as the EntryPoint's packed struct
// expects for accountGasLimits and gasFees.
func packUintPair(hi, lo *big.Int) ([32]byte, error) {
	var word [32]byte
	if hi == nil {
		hi = big.NewInt(0)
	}
	if lo == nil {
		lo = big.NewInt(0)
	}
	if hi.Sign() < 0 || hi.BitLen() > 128 {
		return word, fmt.Errorf("userop: high half does not fit 128 bits: %s", hi)
	}
	if lo.Sign() < 0 || lo.BitLen() > 128 {
		return word, fmt.Errorf("userop: low half does not fit 128 bits: %s", lo)
	}
	hi.FillBytes(word[:16])
	lo.FillBytes(word[16:])
	return word, nil
}

func padUint(n *big.Int) ([]byte, error) {
	if n == nil {
		n = big.NewInt(0)
	}
	if n.Sign() < 0 || n.BitLen() > 256 {
		return nil, fmt.Errorf("userop: value does not fit uint256: %s", n)
	}
	out := make([]byte, 32)
	n.FillBytes(out)
	return out, nil
}

// PackForHash assembles the 256-byte struct digest input:
//
//	sender ‖ nonce ‖ keccak(initCode) ‖ keccak(callData) ‖
//	accountGasLimits ‖ preVerificationGas ‖ gasFees ‖ keccak(paymasterAndData)
//
// Variable-length members enter as their keccak so the packed form has a
// fixed layout regardless of blob sizes.
func (op *UserOperation) PackForHash() ([]byte, error) {
	nonce, err := padUint(op.Nonce)
	if err != nil {
		return nil, err
	}
	preVerification, err := padUint(op.PreVerificationGas)
	if err != nil {
		return nil, err
	}
	accountGasLimits, err := packUintPair(op.VerificationGasLimit, op.CallGasLimit)
	if err != nil {
		return nil, err
	}
	gasFees, err := packUintPair(op.MaxPriorityFeePerGas, op.MaxFeePerGas)
	if err != nil {
		return nil, err
	}

	packed := make([]byte, 0, 8*32)
	packed = append(packed, common.LeftPadBytes(op.Sender.Bytes(), 32)...)
	packed = append(packed, nonce...)
	packed = append(packed, crypto.Keccak256(op.InitCode)...)
	packed = append(packed, crypto.Keccak256(op.CallData)...)
	packed = append(packed, accountGasLimits[:]...)
	packed = append(packed, preVerification...)
	packed = append(packed, gasFees[:]...)
	packed = append(packed, crypto.Keccak256(op.PaymasterAndData)...)
	return packed, nil
}

// GetUserOpHash computes the digest the account owner signs. The inner struct
// hash is domain-bound to the EntryPoint address and chain id so a signature
// cannot be replayed on another chain or against another EntryPoint version.
func (op *UserOperation) GetUserOpHash(entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return common.Hash{}, fmt.Errorf("userop: invalid chain id %v", chainID)
	}

	packed, err := op.PackForHash()
	if err != nil {
		return common.Hash{}, err
	}
	structHash := crypto.Keccak256(packed)

	chainWord, err := padUint(chainID)
	if err != nil {
		return common.Hash{}, err
	}

	domain := make([]byte, 0, 3*32)
	domain = append(domain, structHash...)
	domain = append(domain, common.LeftPadBytes(entryPoint.Bytes(), 32)...)
	domain = append(domain, chainWord...)
	return crypto.Keccak256Hash(domain), nil
}
