package userop

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Wire is the current bundler JSON shape: hex-string quantities, the init
// code split into factory/factoryData and the paymaster blob split into its
// address, gas limits and opaque data. Absent sections marshal as null.
type Wire struct {
	Sender               common.Address  `json:"sender"`
	Nonce                *hexutil.Big    `json:"nonce"`
	Factory              *common.Address `json:"factory"`
	FactoryData          *hexutil.Bytes  `json:"factoryData"`
	CallData             hexutil.Bytes   `json:"callData"`
	CallGasLimit         *hexutil.Big    `json:"callGasLimit"`
	VerificationGasLimit *hexutil.Big    `json:"verificationGasLimit"`
	PreVerificationGas   *hexutil.Big    `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`

	Paymaster                     *common.Address `json:"paymaster"`
	PaymasterVerificationGasLimit *hexutil.Big    `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       *hexutil.Big    `json:"paymasterPostOpGasLimit"`
	PaymasterData                 *hexutil.Bytes  `json:"paymasterData"`

	Signature hexutil.Bytes `json:"signature"`
}

// LegacyWire is the combined-field shape older bundlers speak: a single
// initCode and a single paymasterAndData hex blob.
type LegacyWire struct {
	Sender               common.Address `json:"sender"`
	Nonce                string         `json:"nonce"`
	InitCode             string         `json:"initCode"`
	CallData             string         `json:"callData"`
	CallGasLimit         string         `json:"callGasLimit"`
	VerificationGasLimit string         `json:"verificationGasLimit"`
	PreVerificationGas   string         `json:"preVerificationGas"`
	MaxFeePerGas         string         `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string         `json:"maxPriorityFeePerGas"`
	PaymasterAndData     string         `json:"paymasterAndData"`
	Signature            string         `json:"signature"`
}

func toHexBig(n *big.Int) *hexutil.Big {
	if n == nil {
		n = big.NewInt(0)
	}
	return (*hexutil.Big)(new(big.Int).Set(n))
}

func fromHexBig(h *hexutil.Big) *big.Int {
	if h == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set((*big.Int)(h))
}

// ToWire splits the combined fields into the current wire shape. An init code
// or paymaster blob shorter than an address cannot be split and is rejected.
func (op *UserOperation) ToWire() (*Wire, error) {
	w := &Wire{
		Sender:               op.Sender,
		Nonce:                toHexBig(op.Nonce),
		CallData:             hexutil.Bytes(append([]byte(nil), op.CallData...)),
		CallGasLimit:         toHexBig(op.CallGasLimit),
		VerificationGasLimit: toHexBig(op.VerificationGasLimit),
		PreVerificationGas:   toHexBig(op.PreVerificationGas),
		MaxFeePerGas:         toHexBig(op.MaxFeePerGas),
		MaxPriorityFeePerGas: toHexBig(op.MaxPriorityFeePerGas),
		Signature:            hexutil.Bytes(append([]byte(nil), op.Signature...)),
	}

	if op.IsDeployment() {
		if len(op.InitCode) < common.AddressLength {
			return nil, fmt.Errorf("userop: init code too short to split: %d bytes", len(op.InitCode))
		}
		factory := common.BytesToAddress(op.InitCode[:common.AddressLength])
		data := hexutil.Bytes(append([]byte(nil), op.InitCode[common.AddressLength:]...))
		w.Factory = &factory
		w.FactoryData = &data
	}

	if op.UsesPaymaster() {
		if len(op.PaymasterAndData) < common.AddressLength {
			return nil, fmt.Errorf("userop: paymasterAndData too short to split: %d bytes", len(op.PaymasterAndData))
		}
		pm := common.BytesToAddress(op.PaymasterAndData[:common.AddressLength])
		data := hexutil.Bytes(append([]byte(nil), op.PaymasterAndData[common.AddressLength:]...))
		w.Paymaster = &pm
		w.PaymasterData = &data
		if op.PaymasterVerificationGasLimit != nil {
			w.PaymasterVerificationGasLimit = toHexBig(op.PaymasterVerificationGasLimit)
		}
		if op.PaymasterPostOpGasLimit != nil {
			w.PaymasterPostOpGasLimit = toHexBig(op.PaymasterPostOpGasLimit)
		}
	}

	return w, nil
}

// FromWire reassembles the combined fields from the split wire shape.
func FromWire(w *Wire) *UserOperation {
	op := &UserOperation{
		Sender:               w.Sender,
		Nonce:                fromHexBig(w.Nonce),
		CallData:             append([]byte(nil), w.CallData...),
		CallGasLimit:         fromHexBig(w.CallGasLimit),
		VerificationGasLimit: fromHexBig(w.VerificationGasLimit),
		PreVerificationGas:   fromHexBig(w.PreVerificationGas),
		MaxFeePerGas:         fromHexBig(w.MaxFeePerGas),
		MaxPriorityFeePerGas: fromHexBig(w.MaxPriorityFeePerGas),
		Signature:            append([]byte(nil), w.Signature...),
	}

	if w.Factory != nil {
		op.InitCode = append(op.InitCode, w.Factory.Bytes()...)
		if w.FactoryData != nil {
			op.InitCode = append(op.InitCode, *w.FactoryData...)
		}
	}

	if w.Paymaster != nil {
		op.PaymasterAndData = append(op.PaymasterAndData, w.Paymaster.Bytes()...)
		if w.PaymasterData != nil {
			op.PaymasterAndData = append(op.PaymasterAndData, *w.PaymasterData...)
		}
		if w.PaymasterVerificationGasLimit != nil {
			op.PaymasterVerificationGasLimit = fromHexBig(w.PaymasterVerificationGasLimit)
		}
		if w.PaymasterPostOpGasLimit != nil {
			op.PaymasterPostOpGasLimit = fromHexBig(w.PaymasterPostOpGasLimit)
		}
	}

	return op
}

// ToLegacyWire renders the combined-field shape for bundlers that predate the
// split format.
func (op *UserOperation) ToLegacyWire() LegacyWire {
	return LegacyWire{
		Sender:               op.Sender,
		Nonce:                toHexBig(op.Nonce).String(),
		InitCode:             hexutil.Encode(op.InitCode),
		CallData:             hexutil.Encode(op.CallData),
		CallGasLimit:         toHexBig(op.CallGasLimit).String(),
		VerificationGasLimit: toHexBig(op.VerificationGasLimit).String(),
		PreVerificationGas:   toHexBig(op.PreVerificationGas).String(),
		MaxFeePerGas:         toHexBig(op.MaxFeePerGas).String(),
		MaxPriorityFeePerGas: toHexBig(op.MaxPriorityFeePerGas).String(),
		PaymasterAndData:     hexutil.Encode(op.PaymasterAndData),
		Signature:            hexutil.Encode(op.Signature),
	}
}
