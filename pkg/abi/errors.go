package abi

import "fmt"

// DecodeError describes why a response could not be decoded. It carries the
// structured context (kind, slot, byte positions) so callers can log or
// localize without parsing prose.
type DecodeError struct {
	Kind   Kind
	Slot   int // parameter index being decoded
	Offset int // byte offset the failure occurred at
	Need   int // bytes required
	Have   int // bytes available
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("abi: decode %s at slot %d: %s", e.Kind, e.Slot, e.Reason)
	}
	return fmt.Sprintf("abi: decode %s at slot %d: need %d bytes at offset %d, have %d",
		e.Kind, e.Slot, e.Need, e.Offset, e.Have)
}

// EncodeError describes an unencodable value.
type EncodeError struct {
	Kind   Kind
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("abi: encode %s: %s", e.Kind, e.Reason)
}
