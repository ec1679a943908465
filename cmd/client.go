package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avocetlabs/walletcore/core/chainio"
	"github.com/avocetlabs/walletcore/core/chainio/signer"
	"github.com/avocetlabs/walletcore/core/config"
	"github.com/avocetlabs/walletcore/core/wallets"
	"github.com/avocetlabs/walletcore/metrics"
	"github.com/avocetlabs/walletcore/pkg/erc4337/bundler"
	"github.com/avocetlabs/walletcore/pkg/erc4337/paymaster"
	"github.com/avocetlabs/walletcore/pkg/erc4337/preset"
	"github.com/avocetlabs/walletcore/pkg/erc4337/tracker"
	"github.com/avocetlabs/walletcore/storage"
)

// app holds the wired dependency graph every subcommand works against.
type app struct {
	cfg     *config.Config
	eth     *ethclient.Client
	bundler *bundler.BundlerClient
	builder *preset.Builder
	tracker *tracker.Tracker
	repo    *wallets.Repository
	db      storage.Storage
}

// newApp loads the config file and connects every client the commands need.
func newApp(withStorage bool) (*app, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}

	eth, err := ethclient.Dial(cfg.EthRpcUrl)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to eth rpc %s: %w", cfg.EthRpcUrl, err)
	}

	bundlerClient, err := bundler.NewBundlerClient(cfg.BundlerRpcUrl)
	if err != nil {
		return nil, err
	}

	var sponsor preset.Sponsor
	if cfg.SupportsPaymaster() {
		sponsor = paymaster.NewSponsorClient(cfg.PaymasterUrl, cfg.Logger)
	}

	walletMetrics := metrics.Noop()
	if cfg.EnableMetrics {
		walletMetrics = metrics.NewWalletMetrics(prometheus.NewRegistry())
	}

	opTracker := tracker.NewTracker(bundlerClient, cfg.Logger, walletMetrics)

	builder := preset.NewBuilder(
		preset.Config{
			EntryPoint:   cfg.EntryPointAddress,
			Factory:      cfg.FactoryAddress,
			InitCodeHash: cfg.InitCodeHash,
		},
		chainio.NewChainState(eth, cfg.EntryPointAddress),
		bundlerClient,
		bundlerClient,
		sponsor,
		signer.NewKeySigner(cfg.ControllerPrivateKey),
		opTracker,
		walletMetrics,
		cfg.Logger,
	)

	a := &app{
		cfg:     cfg,
		eth:     eth,
		bundler: bundlerClient,
		builder: builder,
		tracker: opTracker,
	}

	if withStorage {
		db, err := storage.NewWithPath(cfg.DbPath)
		if err != nil {
			return nil, fmt.Errorf("cannot open database at %s: %w", cfg.DbPath, err)
		}
		a.db = db
		a.repo = wallets.NewRepository(db, cfg.Logger, walletMetrics)
	}

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	a.bundler.Close()
	a.eth.Close()
}
