// Package byte4 maps 4-byte function selectors of the smart wallet surface
// back to human-readable signatures, for rendering calldata in logs and
// command output.
package byte4

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Canonical signatures of the account, factory and EntryPoint methods this
// client packs itself. A selector is the first four bytes of the keccak of
// the canonical signature.
var knownSignatures = []string{
	"execute(address,uint256,bytes)",
	"executeBatch(address[],uint256[],bytes[])",
	"createAccount(address,uint256)",
	"getNonce(address,uint192)",
}

var knownSelectors = make(map[[4]byte]string, len(knownSignatures))

func init() {
	for _, sig := range knownSignatures {
		var sel [4]byte
		copy(sel[:], crypto.Keccak256([]byte(sig)))
		knownSelectors[sel] = sig
	}
}

// KnownMethodSignature returns the full signature for calldata whose selector
// belongs to the smart wallet surface, or an empty string.
func KnownMethodSignature(calldata []byte) string {
	if len(calldata) < 4 {
		return ""
	}
	var sel [4]byte
	copy(sel[:], calldata[:4])
	return knownSelectors[sel]
}
