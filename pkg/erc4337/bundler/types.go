package bundler

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
)

// GasEstimation is the answer to eth_estimateUserOperationGas. The paymaster
// fields are only present when the estimated operation carries a paymaster.
type GasEstimation struct {
	PreVerificationGas            *hexutil.Big `json:"preVerificationGas"`
	VerificationGasLimit          *hexutil.Big `json:"verificationGasLimit"`
	CallGasLimit                  *hexutil.Big `json:"callGasLimit"`
	PaymasterVerificationGasLimit *hexutil.Big `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       *hexutil.Big `json:"paymasterPostOpGasLimit,omitempty"`
}

// Apply writes the estimated limits onto an operation.
func (g *GasEstimation) Apply(op *userop.UserOperation) {
	if v := asBig(g.CallGasLimit); v != nil {
		op.CallGasLimit = v
	}
	if v := asBig(g.VerificationGasLimit); v != nil {
		op.VerificationGasLimit = v
	}
	if v := asBig(g.PreVerificationGas); v != nil {
		op.PreVerificationGas = v
	}
	if v := asBig(g.PaymasterVerificationGasLimit); v != nil {
		op.PaymasterVerificationGasLimit = v
	}
	if v := asBig(g.PaymasterPostOpGasLimit); v != nil {
		op.PaymasterPostOpGasLimit = v
	}
}

func asBig(v *hexutil.Big) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v.ToInt())
}

// OperationLookup is the answer to eth_getUserOperationByHash. BlockNumber
// stays null while the operation sits in the mempool.
type OperationLookup struct {
	UserOperation   userop.Wire    `json:"userOperation"`
	EntryPoint      common.Address `json:"entryPoint"`
	BlockNumber     *hexutil.Big   `json:"blockNumber"`
	BlockHash       *common.Hash   `json:"blockHash"`
	TransactionHash *common.Hash   `json:"transactionHash"`
}

// Included reports whether the operation has made it into a block.
func (l *OperationLookup) Included() bool {
	return l.BlockNumber != nil && l.BlockNumber.ToInt().Sign() > 0
}

// OperationReceipt is the answer to eth_getUserOperationReceipt. Success is
// false when the account execution reverted; the EntryPoint transaction
// itself still succeeded in that case.
type OperationReceipt struct {
	UserOpHash    common.Hash     `json:"userOpHash"`
	Sender        common.Address  `json:"sender"`
	Nonce         *hexutil.Big    `json:"nonce"`
	Paymaster     *common.Address `json:"paymaster,omitempty"`
	ActualGasCost *hexutil.Big    `json:"actualGasCost"`
	ActualGasUsed *hexutil.Big    `json:"actualGasUsed"`
	Success       bool            `json:"success"`
	Reason        string          `json:"reason,omitempty"`
	Logs          json.RawMessage `json:"logs,omitempty"`
	Receipt       json.RawMessage `json:"receipt,omitempty"`
}
