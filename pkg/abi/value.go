// Package abi implements the subset of the Solidity ABI encoding that smart
// wallet calldata needs: the seven value kinds used by the account and factory
// contracts, head/tail layout for dynamic values, and strict decoding of
// eth_call responses.
//
// Negative integers are two's-complemented over the value's native width
// (64/128/256 bits as needed) rather than the full 256 bits the EVM uses.
// This matches the behavior of the wallets already deployed against this
// encoder and is pinned by tests; do not "fix" it without auditing downstream
// signature expectations.
package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindUint256 Kind = iota
	KindInt256
	KindAddress
	KindBytes32
	KindBool
	KindString
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindUint256:
		return "uint256"
	case KindInt256:
		return "int256"
	case KindAddress:
		return "address"
	case KindBytes32:
		return "bytes32"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	}
	return fmt.Sprintf("abi.Kind(%d)", int(k))
}

// IsDynamic reports whether the kind is encoded out-of-line with an offset
// word in the head.
func (k Kind) IsDynamic() bool {
	return k == KindString || k == KindBytes
}

// Value is a tagged union over the supported ABI kinds. The zero Value is a
// zero uint256.
type Value struct {
	kind Kind

	num     *big.Int
	addr    common.Address
	word    [32]byte
	boolean bool
	str     string
	blob    []byte
}

func Uint256(v *big.Int) Value {
	return Value{kind: KindUint256, num: new(big.Int).Set(v)}
}

func Int256(v *big.Int) Value {
	return Value{kind: KindInt256, num: new(big.Int).Set(v)}
}

func Address(a common.Address) Value {
	return Value{kind: KindAddress, addr: a}
}

func Bytes32(w [32]byte) Value {
	return Value{kind: KindBytes32, word: w}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, boolean: b}
}

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Bytes(b []byte) Value {
	return Value{kind: KindBytes, blob: append([]byte(nil), b...)}
}

func (v Value) Kind() Kind { return v.kind }

// Accessors return the variant payload and report whether the Value actually
// holds that kind.

func (v Value) Big() (*big.Int, bool) {
	if v.kind != KindUint256 && v.kind != KindInt256 {
		return nil, false
	}
	if v.num == nil {
		return big.NewInt(0), true
	}
	return new(big.Int).Set(v.num), true
}

func (v Value) Addr() (common.Address, bool) {
	return v.addr, v.kind == KindAddress
}

func (v Value) Word() ([32]byte, bool) {
	return v.word, v.kind == KindBytes32
}

func (v Value) Bool() (bool, bool) {
	return v.boolean, v.kind == KindBool
}

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) Blob() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return append([]byte(nil), v.blob...), true
}

// Equal compares kind and payload. Numeric comparison uses big.Int equality
// so distinct pointer values with the same magnitude compare equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindUint256, KindInt256:
		a, _ := v.Big()
		b, _ := o.Big()
		return a.Cmp(b) == 0
	case KindAddress:
		return v.addr == o.addr
	case KindBytes32:
		return v.word == o.word
	case KindBool:
		return v.boolean == o.boolean
	case KindString:
		return v.str == o.str
	case KindBytes:
		return string(v.blob) == string(o.blob)
	}
	return false
}
