// Package paymaster normalizes sponsorship results from paymaster RPC
// services into a single canonical shape.
//
// Paymaster services answer in two dialects. Older endpoints return one
// combined paymasterAndData blob; newer ones return the paymaster address,
// its data, and the two paymaster gas limits as separate fields. Downstream
// code only ever sees the normalized Sponsorship, so the dialect never
// leaks past this package.
package paymaster

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
)

// ErrUnsupportedFormat is returned when a response carries fields that
// cannot be reconciled into a single sponsorship.
var ErrUnsupportedFormat = errors.New("paymaster: unsupported response format")

// ErrNotSponsored is returned when a response carries no paymaster at all.
var ErrNotSponsored = errors.New("paymaster: response carries no sponsorship")

// SponsorshipResponse is the raw JSON answer from a pm_sponsorUserOperation
// call, accepting both the combined and the split field layouts.
type SponsorshipResponse struct {
	// combined layout
	PaymasterAndData string `json:"paymasterAndData,omitempty"`

	// split layout
	Paymaster                     string `json:"paymaster,omitempty"`
	PaymasterData                 string `json:"paymasterData,omitempty"`
	PaymasterVerificationGasLimit string `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       string `json:"paymasterPostOpGasLimit,omitempty"`

	// optional gas overrides some services return alongside sponsorship
	CallGasLimit         string `json:"callGasLimit,omitempty"`
	VerificationGasLimit string `json:"verificationGasLimit,omitempty"`
	PreVerificationGas   string `json:"preVerificationGas,omitempty"`
}

// Sponsorship is the normalized result. PaymasterAndData always starts with
// the 20 paymaster address bytes; the paymaster gas limits ride alongside
// and are never folded into the blob.
type Sponsorship struct {
	PaymasterAndData     []byte
	VerificationGasLimit *big.Int
	PostOpGasLimit       *big.Int

	// nil unless the service returned an override
	CallGas         *big.Int
	VerificationGas *big.Int
	PreVerification *big.Int
}

// Normalize folds either dialect into a Sponsorship. A combined blob is
// taken verbatim, and wins over split fields when a response carries both;
// split fields are concatenated as paymaster followed by paymasterData.
func (r *SponsorshipResponse) Normalize() (*Sponsorship, error) {
	combined := r.PaymasterAndData != "" && r.PaymasterAndData != "0x"
	split := r.Paymaster != ""

	if !combined && !split {
		if r.PaymasterData != "" && r.PaymasterData != "0x" {
			return nil, fmt.Errorf("%w: paymasterData without paymaster address", ErrUnsupportedFormat)
		}
		return nil, ErrNotSponsored
	}

	out := &Sponsorship{}

	if combined {
		blob, err := hexutil.Decode(r.PaymasterAndData)
		if err != nil {
			return nil, fmt.Errorf("%w: paymasterAndData: %v", ErrUnsupportedFormat, err)
		}
		if len(blob) < common.AddressLength {
			return nil, fmt.Errorf("%w: paymasterAndData shorter than an address", ErrUnsupportedFormat)
		}
		out.PaymasterAndData = blob
	} else {
		if !common.IsHexAddress(r.Paymaster) {
			return nil, fmt.Errorf("%w: paymaster %q is not an address", ErrUnsupportedFormat, r.Paymaster)
		}
		addr := common.HexToAddress(r.Paymaster)

		var data []byte
		if r.PaymasterData != "" && r.PaymasterData != "0x" {
			var err error
			data, err = hexutil.Decode(r.PaymasterData)
			if err != nil {
				return nil, fmt.Errorf("%w: paymasterData: %v", ErrUnsupportedFormat, err)
			}
		}

		out.PaymasterAndData = append(addr.Bytes(), data...)
	}

	var err error
	if out.VerificationGasLimit, err = optionalBig(r.PaymasterVerificationGasLimit); err != nil {
		return nil, fmt.Errorf("%w: paymasterVerificationGasLimit: %v", ErrUnsupportedFormat, err)
	}
	if out.PostOpGasLimit, err = optionalBig(r.PaymasterPostOpGasLimit); err != nil {
		return nil, fmt.Errorf("%w: paymasterPostOpGasLimit: %v", ErrUnsupportedFormat, err)
	}
	if out.CallGas, err = optionalBig(r.CallGasLimit); err != nil {
		return nil, fmt.Errorf("%w: callGasLimit: %v", ErrUnsupportedFormat, err)
	}
	if out.VerificationGas, err = optionalBig(r.VerificationGasLimit); err != nil {
		return nil, fmt.Errorf("%w: verificationGasLimit: %v", ErrUnsupportedFormat, err)
	}
	if out.PreVerification, err = optionalBig(r.PreVerificationGas); err != nil {
		return nil, fmt.Errorf("%w: preVerificationGas: %v", ErrUnsupportedFormat, err)
	}

	return out, nil
}

// Apply writes the sponsorship onto an operation. Gas overrides only
// replace fields the service actually returned.
func (s *Sponsorship) Apply(op *userop.UserOperation) {
	op.PaymasterAndData = append([]byte(nil), s.PaymasterAndData...)
	op.PaymasterVerificationGasLimit = cloneBig(s.VerificationGasLimit)
	op.PaymasterPostOpGasLimit = cloneBig(s.PostOpGasLimit)

	if s.CallGas != nil {
		op.CallGasLimit = new(big.Int).Set(s.CallGas)
	}
	if s.VerificationGas != nil {
		op.VerificationGasLimit = new(big.Int).Set(s.VerificationGas)
	}
	if s.PreVerification != nil {
		op.PreVerificationGas = new(big.Int).Set(s.PreVerification)
	}
}

func optionalBig(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.DecodeBig(s)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
