package abi

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const wordSize = 32

// Selector returns the 4-byte function selector for a canonical signature
// such as "execute(address,uint256,bytes)".
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// EncodeParameter encodes a single value. Static kinds yield exactly one
// 32-byte word; dynamic kinds yield their out-of-line block (length word,
// data, zero padding to a 32-byte boundary). The offset word that points at
// a dynamic block is the caller's concern (see EncodeFunctionCall).
func EncodeParameter(v Value) ([]byte, error) {
	switch v.kind {
	case KindUint256:
		n, _ := v.Big()
		if n.Sign() < 0 {
			return nil, &EncodeError{Kind: KindUint256, Reason: "negative value"}
		}
		if n.BitLen() > 256 {
			return nil, &EncodeError{Kind: KindUint256, Reason: "overflows 256 bits"}
		}
		return common.LeftPadBytes(n.Bytes(), wordSize), nil

	case KindInt256:
		n, _ := v.Big()
		return encodeInt(n)

	case KindAddress:
		return common.LeftPadBytes(v.addr.Bytes(), wordSize), nil

	case KindBytes32:
		// raw data, right-aligned representation is already the full word
		out := make([]byte, wordSize)
		copy(out, v.word[:])
		return out, nil

	case KindBool:
		out := make([]byte, wordSize)
		if v.boolean {
			out[wordSize-1] = 1
		}
		return out, nil

	case KindString:
		return encodeDynamicBlock([]byte(v.str)), nil

	case KindBytes:
		return encodeDynamicBlock(v.blob), nil
	}

	return nil, &EncodeError{Kind: v.kind, Reason: "unsupported kind"}
}

// encodeInt keeps the narrow two's-complement behavior for negative values:
// the complement is taken over the smallest of 64/128/256 bits that holds the
// value, then zero-padded left to 32 bytes. The high padding therefore stays
// zero where a strict ABI encoder would sign-extend with 0xff.
func encodeInt(n *big.Int) ([]byte, error) {
	if n.Sign() >= 0 {
		if n.BitLen() > 255 {
			return nil, &EncodeError{Kind: KindInt256, Reason: "overflows int256"}
		}
		return common.LeftPadBytes(n.Bytes(), wordSize), nil
	}

	width := 64
	for width < 256 && n.BitLen()+1 > width {
		width *= 2
	}
	if n.BitLen()+1 > width {
		return nil, &EncodeError{Kind: KindInt256, Reason: "overflows int256"}
	}

	// twos = 2^width + n, n < 0
	twos := new(big.Int).Lsh(big.NewInt(1), uint(width))
	twos.Add(twos, n)
	return common.LeftPadBytes(twos.Bytes(), wordSize), nil
}

func encodeDynamicBlock(data []byte) []byte {
	padded := len(data)
	if rem := padded % wordSize; rem != 0 {
		padded += wordSize - rem
	}

	out := make([]byte, wordSize+padded)
	big.NewInt(int64(len(data))).FillBytes(out[:wordSize])
	copy(out[wordSize:], data)
	return out
}

// EncodeFunctionCall produces selector-prefixed calldata using the standard
// head/tail layout: static values sit in the head, dynamic values are
// referenced by a byte offset (relative to the start of the arguments) and
// appended to the tail in order.
func EncodeFunctionCall(selector [4]byte, values []Value) ([]byte, error) {
	headSize := wordSize * len(values)
	head := make([]byte, 0, headSize)
	var tail []byte

	for _, v := range values {
		enc, err := EncodeParameter(v)
		if err != nil {
			return nil, err
		}
		if v.kind.IsDynamic() {
			offset := make([]byte, wordSize)
			big.NewInt(int64(headSize + len(tail))).FillBytes(offset)
			head = append(head, offset...)
			tail = append(tail, enc...)
		} else {
			head = append(head, enc...)
		}
	}

	out := make([]byte, 0, 4+len(head)+len(tail))
	out = append(out, selector[:]...)
	out = append(out, head...)
	out = append(out, tail...)
	return out, nil
}
