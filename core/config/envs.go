package config

import "math/big"

type ChainEnv string

const (
	EthereumEnv = ChainEnv("ethereum")
	SepoliaEnv  = ChainEnv("sepolia")
	BaseEnv     = ChainEnv("base")
)

var (
	MainnetChainID = big.NewInt(1)
	SepoliaChainID = big.NewInt(11155111)
	BaseChainID    = big.NewInt(8453)
)

// ChainEnvFromID maps a chain id to its named environment, defaulting to
// sepolia for unknown test chains.
func ChainEnvFromID(chainID *big.Int) ChainEnv {
	switch {
	case chainID.Cmp(MainnetChainID) == 0:
		return EthereumEnv
	case chainID.Cmp(BaseChainID) == 0:
		return BaseEnv
	default:
		return SepoliaEnv
	}
}

func (e ChainEnv) ExplorerURL() string {
	switch e {
	case EthereumEnv:
		return "https://etherscan.io"
	case BaseEnv:
		return "https://basescan.org"
	default:
		return "https://sepolia.etherscan.io"
	}
}
