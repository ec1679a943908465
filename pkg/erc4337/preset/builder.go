// Package preset builds, signs, and submits user operations. It is the
// orchestration layer above the codec, bundler, and paymaster packages.
package preset

import (
	"context"
	"fmt"
	"math/big"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/avocetlabs/walletcore/core/chainio/aa"
	"github.com/avocetlabs/walletcore/metrics"
	"github.com/avocetlabs/walletcore/pkg/erc4337/bundler"
	"github.com/avocetlabs/walletcore/pkg/erc4337/paymaster"
	"github.com/avocetlabs/walletcore/pkg/erc4337/tracker"
	"github.com/avocetlabs/walletcore/pkg/erc4337/userop"
	"github.com/avocetlabs/walletcore/pkg/logger"
	"github.com/avocetlabs/walletcore/pkg/timekeeper"
)

var (
	// Realistic gas limits for operation construction when bundler
	// estimation is skipped. Last validated against Base and Sepolia;
	// rerun representative operations to refresh them.
	DefaultCallGasLimit         = big.NewInt(200_000)
	DefaultVerificationGasLimit = big.NewInt(1_000_000)
	DefaultPreVerificationGas   = big.NewInt(50_000)

	// Wallet deployment runs factory execution, proxy setup, and owner
	// initialization inside the verification phase. Observed AA95 with
	// lower limits on Sepolia.
	DeploymentVerificationGasLimit = big.NewInt(3_000_000)

	// the signature isnt important for estimation, only the length check
	dummySigForGasEstimation = crypto.Keccak256Hash(common.FromHex("0xdead123"))

	defaultSalt = big.NewInt(0)

	// maxFeePerGas must clear the tip by at least this much
	minFeeHeadroom = big.NewInt(1_000_000_000)
)

// ChainState is the read-only view of the target chain the builder needs.
type ChainState interface {
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)
	GetNonce(ctx context.Context, sender common.Address, key *big.Int) (*big.Int, error)
	SuggestFees(ctx context.Context) (maxFeePerGas, maxPriorityFeePerGas *big.Int, err error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Signer produces the operation signature. The key never passes through
// this package.
type Signer interface {
	SignUserOpHash(hash common.Hash) ([]byte, error)
	Address() common.Address
}

// GasEstimator asks a bundler for gas limits. *bundler.BundlerClient
// satisfies it.
type GasEstimator interface {
	EstimateUserOperationGas(ctx context.Context, op *userop.UserOperation, entrypoint common.Address, override map[string]any) (*bundler.GasEstimation, error)
}

// Submitter hands a signed operation to a bundler. *bundler.BundlerClient
// satisfies it.
type Submitter interface {
	SendUserOperation(ctx context.Context, op *userop.UserOperation, entrypoint common.Address) (common.Hash, error)
}

// Sponsor requests paymaster sponsorship. *paymaster.SponsorClient
// satisfies it.
type Sponsor interface {
	SponsorUserOperation(ctx context.Context, op *userop.UserOperation, entryPoint common.Address) (*paymaster.Sponsorship, error)
}

// Call is one action the smart wallet should perform.
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// BuildOptions tune a single build.
type BuildOptions struct {
	// Salt selects which counterfactual wallet of the owner to use.
	// Nil means salt 0.
	Salt *big.Int
	// SenderOverride skips derivation. It must either match the derived
	// address or point at an already deployed wallet.
	SenderOverride *common.Address
	// NonceOverride skips the chain nonce read, for sequential operations.
	NonceOverride *big.Int
	// SkipEstimation keeps the default gas limits instead of asking the
	// bundler, for flows where a paymaster supplies its own limits.
	SkipEstimation bool
	// UsePaymaster requests sponsorship from the configured Sponsor.
	UsePaymaster bool
}

// Config carries the chain constants a Builder is bound to.
type Config struct {
	EntryPoint common.Address
	Factory    common.Address
	// InitCodeHash is the keccak of the wallet creation code the factory
	// deploys, needed for counterfactual address derivation.
	InitCodeHash common.Hash
}

// Builder assembles signable user operations. Every dependency is explicit;
// a Builder with a nil Sponsor simply cannot build sponsored operations.
type Builder struct {
	cfg       Config
	chain     ChainState
	estimator GasEstimator
	submitter Submitter
	sponsor   Sponsor
	signer    Signer
	tracker   *tracker.Tracker
	nonces    *bundler.NonceManager
	metrics   metrics.MetricsGenerator
	logger    sdklogging.Logger
}

func NewBuilder(
	cfg Config,
	chain ChainState,
	estimator GasEstimator,
	submitter Submitter,
	sponsor Sponsor,
	signer Signer,
	tr *tracker.Tracker,
	m metrics.MetricsGenerator,
	log sdklogging.Logger,
) *Builder {
	if m == nil {
		m = metrics.Noop()
	}
	log = logger.EnsureLogger(log)
	return &Builder{
		cfg:       cfg,
		chain:     chain,
		estimator: estimator,
		submitter: submitter,
		sponsor:   sponsor,
		signer:    signer,
		tracker:   tr,
		nonces:    bundler.NewNonceManager(log),
		metrics:   m,
		logger:    log,
	}
}

// BuildUserOp assembles, fills, and signs an operation for the given calls.
// Every step is fail-fast: the caller gets either a complete operation or
// an error, never a half-built one.
func (b *Builder) BuildUserOp(ctx context.Context, owner common.Address, calls []Call, opts BuildOptions) (*userop.UserOperation, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("preset: no calls to build")
	}

	salt := opts.Salt
	if salt == nil {
		salt = defaultSalt
	}

	// step 1: resolve the wallet address and deployment state
	sender, err := b.resolveSender(ctx, owner, salt, opts.SenderOverride)
	if err != nil {
		return nil, err
	}

	code, err := b.chain.CodeAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to check wallet code: %w", err)
	}

	var initCode []byte
	deployed := len(code) > 0
	if !deployed {
		initCode, err = aa.GetInitCode(b.cfg.Factory, owner, salt)
		if err != nil {
			return nil, err
		}
		b.logger.Debug("wallet not deployed, attaching init code",
			"sender", sender.Hex(), "owner", owner.Hex())
	}

	// step 2: encode calldata
	callData, err := encodeCalls(calls)
	if err != nil {
		return nil, err
	}

	op := &userop.UserOperation{
		Sender:               sender,
		InitCode:             initCode,
		CallData:             callData,
		CallGasLimit:         new(big.Int).Set(DefaultCallGasLimit),
		VerificationGasLimit: new(big.Int).Set(DefaultVerificationGasLimit),
		PreVerificationGas:   new(big.Int).Set(DefaultPreVerificationGas),
	}
	if !deployed {
		op.VerificationGasLimit = new(big.Int).Set(DeploymentVerificationGasLimit)
	}

	// step 3: nonce, fees, and gas estimation. The nonce manager keeps
	// back-to-back operations from reusing a nonce still in the mempool.
	if opts.NonceOverride != nil {
		op.Nonce = new(big.Int).Set(opts.NonceOverride)
	} else {
		op.Nonce, err = b.nonces.GetNextNonce(sender, func() (*big.Int, error) {
			return b.chain.GetNonce(ctx, sender, nil)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch wallet nonce: %w", err)
		}
	}

	maxFee, tip, err := b.chain.SuggestFees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas fees: %w", err)
	}
	if headroom := new(big.Int).Add(tip, minFeeHeadroom); maxFee.Cmp(headroom) < 0 {
		maxFee = headroom
	}
	op.MaxFeePerGas = maxFee
	op.MaxPriorityFeePerGas = tip

	if !opts.SkipEstimation {
		if err := b.estimateGas(ctx, op, deployed); err != nil {
			return nil, err
		}
	}

	// step 4: paymaster sponsorship
	if opts.UsePaymaster {
		if b.sponsor == nil {
			return nil, fmt.Errorf("preset: paymaster requested but no sponsor configured")
		}
		sponsorship, err := b.sponsor.SponsorUserOperation(ctx, op, b.cfg.EntryPoint)
		if err != nil {
			b.metrics.IncSponsorship("error")
			return nil, fmt.Errorf("sponsorship request failed: %w", err)
		}
		sponsorship.Apply(op)
		b.metrics.IncSponsorship("granted")
	}

	// step 5: hash and sign. Cancellation must land before the signature
	// so we never produce a signed operation nobody will submit.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chainID, err := b.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	opHash, err := op.GetUserOpHash(b.cfg.EntryPoint, chainID)
	if err != nil {
		return nil, err
	}
	op.Signature, err = b.signer.SignUserOpHash(opHash)
	if err != nil {
		return nil, fmt.Errorf("failed to sign operation: %w", err)
	}

	if b.tracker != nil {
		b.tracker.Track(opHash, sender)
	}
	return op, nil
}

// Send submits a built operation and returns the bundler's operation hash.
func (b *Builder) Send(ctx context.Context, op *userop.UserOperation) (common.Hash, error) {
	chainID, err := b.chain.ChainID(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get chain ID: %w", err)
	}
	localHash, err := op.GetUserOpHash(b.cfg.EntryPoint, chainID)
	if err != nil {
		return common.Hash{}, err
	}

	opHash, err := b.submitter.SendUserOperation(ctx, op, b.cfg.EntryPoint)
	if err != nil {
		// drop the cached nonce so the next build reads fresh chain state
		b.nonces.ResetNonce(op.Sender)
		if b.tracker != nil {
			b.tracker.MarkFailed(localHash, err.Error())
		}
		return common.Hash{}, fmt.Errorf("error sending operation to bundler: %w", err)
	}

	if opHash != localHash {
		b.logger.Warn("bundler operation hash differs from local hash",
			"local", localHash.Hex(), "bundler", opHash.Hex())
	}

	b.nonces.IncrementNonce(op.Sender, op.Nonce)
	b.metrics.IncOpSubmitted()
	if b.tracker != nil {
		b.tracker.MarkSubmitted(localHash)
	}
	b.logger.Info("user operation submitted",
		"op_hash", opHash.Hex(),
		"sender", op.Sender.Hex(),
		"nonce", op.Nonce.String())
	return opHash, nil
}

// SendUserOp builds, signs, and submits in one shot.
func (b *Builder) SendUserOp(ctx context.Context, owner common.Address, calls []Call, opts BuildOptions) (*userop.UserOperation, common.Hash, error) {
	elapsing := timekeeper.NewElapsing()

	op, err := b.BuildUserOp(ctx, owner, calls, opts)
	if err != nil {
		return nil, common.Hash{}, err
	}
	buildTime := elapsing.Report()

	opHash, err := b.Send(ctx, op)
	if err != nil {
		return op, common.Hash{}, err
	}
	b.logger.Debug("operation built and submitted",
		"build_time", buildTime.String(),
		"submit_time", elapsing.Report().String())
	return op, opHash, nil
}

func (b *Builder) resolveSender(ctx context.Context, owner common.Address, salt *big.Int, override *common.Address) (common.Address, error) {
	derived, err := aa.ComputeSmartWalletAddress(b.cfg.Factory, owner, salt, b.cfg.InitCodeHash)
	if err != nil {
		return common.Address{}, err
	}
	if override == nil || *override == derived {
		return derived, nil
	}

	// an override that differs from the derived address must already be
	// deployed, since init code can only deploy the derived wallet
	code, err := b.chain.CodeAt(ctx, *override)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to check sender override: %w", err)
	}
	if len(code) == 0 {
		return common.Address{}, fmt.Errorf("sender override %s does not match derived wallet %s and is not deployed",
			override.Hex(), derived.Hex())
	}
	return *override, nil
}

// estimateGas fills gas limits from the bundler. An estimation failure
// aborts the build; retry policy belongs to the caller. The deployment
// verification limit is never lowered by an estimate.
func (b *Builder) estimateGas(ctx context.Context, op *userop.UserOperation, deployed bool) error {
	candidate := op.Copy()
	candidate.Signature = dummySigForGasEstimation.Bytes()

	est, err := b.estimator.EstimateUserOperationGas(ctx, candidate, b.cfg.EntryPoint, nil)
	if err != nil {
		return fmt.Errorf("gas estimation failed: %w", err)
	}

	deploymentLimit := op.VerificationGasLimit
	est.Apply(op)
	if !deployed && op.VerificationGasLimit.Cmp(deploymentLimit) < 0 {
		op.VerificationGasLimit = deploymentLimit
	}
	return nil
}

func encodeCalls(calls []Call) ([]byte, error) {
	if len(calls) == 1 {
		c := calls[0]
		value := c.Value
		if value == nil {
			value = big.NewInt(0)
		}
		return aa.PackExecute(c.Target, value, c.Data)
	}

	targets := make([]common.Address, len(calls))
	values := make([]*big.Int, len(calls))
	datas := make([][]byte, len(calls))
	for i, c := range calls {
		targets[i] = c.Target
		values[i] = c.Value
		datas[i] = c.Data
	}
	return aa.PackExecuteBatch(targets, values, datas)
}
