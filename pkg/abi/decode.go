package abi

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// ParseHex decodes a 0x-prefixed hex string. Odd length or non-hex digits are
// reported, never silently truncated. "0x" decodes to an empty slice.
func ParseHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("abi: hex string %q missing 0x prefix", s)
	}
	body := s[2:]
	if len(body)%2 != 0 {
		return nil, fmt.Errorf("abi: odd-length hex string (%d digits)", len(body))
	}
	out, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("abi: malformed hex string: %w", err)
	}
	return out, nil
}

// DecodeResponse decodes an eth_call return payload against the expected
// kinds. Static kinds are read from their head slot; dynamic kinds follow the
// offset word to a length-prefixed block. Any bounds or type violation yields
// a *DecodeError, never a partial result.
func DecodeResponse(data []byte, kinds []Kind) ([]Value, error) {
	values := make([]Value, 0, len(kinds))

	for i, k := range kinds {
		slotStart := i * wordSize
		if len(data) < slotStart+wordSize {
			return nil, &DecodeError{Kind: k, Slot: i, Offset: slotStart, Need: wordSize, Have: len(data) - slotStart}
		}
		slot := data[slotStart : slotStart+wordSize]

		switch k {
		case KindUint256:
			values = append(values, Uint256(new(big.Int).SetBytes(slot)))

		case KindInt256:
			n := new(big.Int).SetBytes(slot)
			if slot[0]&0x80 != 0 {
				wrap := new(big.Int).Lsh(big.NewInt(1), 256)
				n.Sub(n, wrap)
			}
			values = append(values, Int256(n))

		case KindAddress:
			values = append(values, Address(common.BytesToAddress(slot[wordSize-20:])))

		case KindBytes32:
			var w [32]byte
			copy(w[:], slot)
			values = append(values, Bytes32(w))

		case KindBool:
			b, err := decodeBool(slot, i)
			if err != nil {
				return nil, err
			}
			values = append(values, Bool(b))

		case KindString, KindBytes:
			blob, err := decodeDynamic(data, slot, k, i)
			if err != nil {
				return nil, err
			}
			if k == KindString {
				if !utf8.Valid(blob) {
					return nil, &DecodeError{Kind: k, Slot: i, Reason: "invalid UTF-8 payload"}
				}
				values = append(values, String(string(blob)))
			} else {
				values = append(values, Bytes(blob))
			}

		default:
			return nil, &DecodeError{Kind: k, Slot: i, Reason: "unsupported kind"}
		}
	}

	return values, nil
}

func decodeBool(slot []byte, i int) (bool, error) {
	for _, b := range slot[:wordSize-1] {
		if b != 0 {
			return false, &DecodeError{Kind: KindBool, Slot: i, Reason: "non-zero high bytes in boolean word"}
		}
	}
	switch slot[wordSize-1] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, &DecodeError{Kind: KindBool, Slot: i, Reason: fmt.Sprintf("boolean word holds %d", slot[wordSize-1])}
}

func decodeDynamic(data, slot []byte, k Kind, i int) ([]byte, error) {
	offset := new(big.Int).SetBytes(slot)
	if !offset.IsInt64() || offset.Int64() > int64(len(data)) {
		return nil, &DecodeError{Kind: k, Slot: i, Reason: fmt.Sprintf("offset %s out of bounds (%d bytes)", offset, len(data))}
	}
	at := int(offset.Int64())
	if len(data) < at+wordSize {
		return nil, &DecodeError{Kind: k, Slot: i, Offset: at, Need: wordSize, Have: len(data) - at}
	}

	// compare the payload length against the bytes remaining; adding the
	// attacker-controlled length word to an offset could wrap around
	length := new(big.Int).SetBytes(data[at : at+wordSize])
	avail := len(data) - at - wordSize
	if !length.IsInt64() || length.Int64() > int64(avail) {
		return nil, &DecodeError{Kind: k, Slot: i, Offset: at + wordSize,
			Reason: fmt.Sprintf("declared length %s exceeds %d available bytes", length, avail)}
	}

	n := int(length.Int64())
	return append([]byte(nil), data[at+wordSize:at+wordSize+n]...), nil
}
