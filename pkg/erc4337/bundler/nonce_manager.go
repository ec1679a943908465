package bundler

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"

	"github.com/avocetlabs/walletcore/pkg/logger"
)

// NonceManager tracks the next expected EntryPoint nonce per sender so that
// sequential operations do not collide in the bundler mempool. It combines
// on-chain state with knowledge of submitted but not yet mined operations.
type NonceManager struct {
	pendingNonces map[string]*big.Int
	logger        sdklogging.Logger
	mu            sync.RWMutex
}

func NewNonceManager(log sdklogging.Logger) *NonceManager {
	return &NonceManager{
		pendingNonces: make(map[string]*big.Int),
		logger:        logger.EnsureLogger(log),
	}
}

// GetNextNonce returns max(on-chain nonce, cached pending nonce) for the
// sender. The on-chain value wins when previous operations were mined or
// dropped; the cached value wins while operations are still pending.
func (nm *NonceManager) GetNextNonce(
	sender common.Address,
	onChainNonceFetcher func() (*big.Int, error),
) (*big.Int, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	onChainNonce, err := onChainNonceFetcher()
	if err != nil {
		return nil, err
	}

	cachedNonce, hasCached := nm.pendingNonces[sender.Hex()]
	if !hasCached || onChainNonce.Cmp(cachedNonce) > 0 {
		return new(big.Int).Set(onChainNonce), nil
	}

	nm.logger.Debug("using cached pending nonce",
		"sender", sender.Hex(),
		"cached", cachedNonce.String(),
		"onchain", onChainNonce.String())
	return new(big.Int).Set(cachedNonce), nil
}

// IncrementNonce records that currentNonce was just consumed, letting
// back-to-back operations use nonce+1, nonce+2 before the first is mined.
func (nm *NonceManager) IncrementNonce(sender common.Address, currentNonce *big.Int) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	nm.pendingNonces[sender.Hex()] = new(big.Int).Add(currentNonce, big.NewInt(1))
}

// ResetNonce drops the cached value so the next GetNextNonce reads fresh
// chain state. Call it after a nonce conflict.
func (nm *NonceManager) ResetNonce(sender common.Address) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	delete(nm.pendingNonces, sender.Hex())
}

// GetCachedNonce returns the cached nonce without touching the chain.
func (nm *NonceManager) GetCachedNonce(sender common.Address) (*big.Int, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()

	nonce, exists := nm.pendingNonces[sender.Hex()]
	if !exists {
		return nil, false
	}
	return new(big.Int).Set(nonce), true
}
