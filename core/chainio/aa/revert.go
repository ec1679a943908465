package aa

import (
	"bytes"
	"errors"

	"github.com/avocetlabs/walletcore/pkg/abi"
)

// ReasonUnknown is returned when revert data does not carry a standard
// Error(string). It is a successful decode of an unknown case, not an error.
const ReasonUnknown = "reason unknown"

// ErrCompressionUnsupported is returned by the ESIP-7 calldata entry points.
// The compression scheme was never specified for this account family and
// guessing one would produce calldata the inflator cannot reverse.
var ErrCompressionUnsupported = errors.New("aa: ESIP-7 calldata compression is not supported")

// DecodeRevertReason extracts the human-readable message from Error(string)
// revert data. Anything without that selector, including empty data and
// custom errors, decodes to ReasonUnknown.
func DecodeRevertReason(data []byte) string {
	if len(data) < 4 || !bytes.Equal(data[:4], errorStringSelector[:]) {
		return ReasonUnknown
	}

	values, err := abi.DecodeResponse(data[4:], []abi.Kind{abi.KindString})
	if err != nil {
		return ReasonUnknown
	}
	reason, _ := values[0].Str()
	return reason
}

// CompressCalldata is the ESIP-7 hook; see ErrCompressionUnsupported.
func CompressCalldata([]byte) ([]byte, error) {
	return nil, ErrCompressionUnsupported
}

// DecompressCalldata is the ESIP-7 hook; see ErrCompressionUnsupported.
func DecompressCalldata([]byte) ([]byte, error) {
	return nil, ErrCompressionUnsupported
}
