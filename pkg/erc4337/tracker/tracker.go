package tracker

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	sdklogging "github.com/Layr-Labs/eigensdk-go/logging"
	"github.com/ethereum/go-ethereum/common"
	gocron "github.com/go-co-op/gocron/v2"
	"github.com/samber/lo"

	"github.com/avocetlabs/walletcore/metrics"
	"github.com/avocetlabs/walletcore/pkg/erc4337/bundler"
	"github.com/avocetlabs/walletcore/pkg/logger"
)

// DefaultGraceWindow is how long a terminal record stays in the working set
// before eviction.
const DefaultGraceWindow = 5 * time.Minute

// Poller is the slice of the bundler client the tracker needs.
// *bundler.BundlerClient satisfies it.
type Poller interface {
	GetUserOperationByHash(ctx context.Context, hash common.Hash) (*bundler.OperationLookup, error)
	GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*bundler.OperationReceipt, error)
}

// Record is the tracked state of one user operation.
type Record struct {
	OpHash        common.Hash
	Sender        common.Address
	Status        Status
	TxHash        *common.Hash
	BlockNumber   *big.Int
	Reason        string
	ActualGasCost *big.Int
	TrackedAt     time.Time
	UpdatedAt     time.Time
}

// Tracker is a state machine keyed by operation hash. All transitions after
// submission are driven by polling the bundler.
type Tracker struct {
	poller      Poller
	logger      sdklogging.Logger
	metrics     metrics.MetricsGenerator
	graceWindow time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	entries map[common.Hash]*Record

	scheduler gocron.Scheduler
}

func NewTracker(poller Poller, log sdklogging.Logger, m metrics.MetricsGenerator) *Tracker {
	if m == nil {
		m = metrics.Noop()
	}
	return &Tracker{
		poller:      poller,
		logger:      logger.EnsureLogger(log),
		metrics:     m,
		graceWindow: DefaultGraceWindow,
		now:         time.Now,
		entries:     make(map[common.Hash]*Record),
	}
}

// Track registers a locally built operation in the pending state.
func (t *Tracker) Track(opHash common.Hash, sender common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[opHash]; exists {
		return
	}
	now := t.now()
	t.entries[opHash] = &Record{
		OpHash:    opHash,
		Sender:    sender,
		Status:    StatusPending,
		TrackedAt: now,
		UpdatedAt: now,
	}
}

// MarkSubmitted records that the bundler accepted the operation.
func (t *Tracker) MarkSubmitted(opHash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked(opHash, StatusSubmitted, func(*Record) {})
}

// MarkFailed forces an operation into the failed terminal state, for
// submissions the bundler rejected outright.
func (t *Tracker) MarkFailed(opHash common.Hash, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advanceLocked(opHash, StatusFailed, func(r *Record) {
		r.Reason = reason
	})
}

// advanceLocked applies a transition if it is legal, ignoring it otherwise.
// Caller holds t.mu.
func (t *Tracker) advanceLocked(opHash common.Hash, to Status, update func(*Record)) {
	rec, exists := t.entries[opHash]
	if !exists {
		return
	}
	if !CanTransition(rec.Status, to) {
		if rec.Status != to {
			t.logger.Debug("ignoring illegal status transition",
				"op_hash", opHash.Hex(),
				"from", rec.Status.String(),
				"to", to.String())
		}
		return
	}

	from := rec.Status
	rec.Status = to
	rec.UpdatedAt = t.now()
	update(rec)

	if to.IsTerminal() {
		t.metrics.IncOpOutcome(to.String())
	}
	t.logger.Info("user operation status changed",
		"op_hash", opHash.Hex(),
		"from", from.String(),
		"to", to.String())
}

// Get returns a copy of the record for the given hash.
func (t *Tracker) Get(opHash common.Hash) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, exists := t.entries[opHash]
	if !exists {
		return Record{}, false
	}
	return *rec, true
}

// Snapshot returns copies of all tracked records, oldest first.
func (t *Tracker) Snapshot() []Record {
	t.mu.RLock()
	records := lo.MapToSlice(t.entries, func(_ common.Hash, rec *Record) Record {
		return *rec
	})
	t.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].TrackedAt.Before(records[j].TrackedAt)
	})
	return records
}

// Poll refreshes one operation from the bundler. A failed poll leaves the
// tracked status untouched.
func (t *Tracker) Poll(ctx context.Context, opHash common.Hash) error {
	t.mu.RLock()
	rec, exists := t.entries[opHash]
	var status Status
	if exists {
		status = rec.Status
	}
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("tracker: unknown operation %s", opHash.Hex())
	}
	if status.IsTerminal() {
		return nil
	}

	lookup, err := t.poller.GetUserOperationByHash(ctx, opHash)
	if err != nil {
		t.metrics.IncPollError()
		t.logger.Warn("bundler poll failed, keeping previous status",
			"op_hash", opHash.Hex(), "error", err)
		return nil
	}
	if lookup == nil {
		// bundler has not seen it, or it is still queued
		return nil
	}

	t.mu.Lock()
	if lookup.Included() {
		t.advanceLocked(opHash, StatusOnChain, func(r *Record) {
			r.TxHash = lookup.TransactionHash
			r.BlockNumber = lookup.BlockNumber.ToInt()
		})
	} else {
		t.advanceLocked(opHash, StatusBundled, func(*Record) {})
	}
	t.mu.Unlock()

	if !lookup.Included() {
		return nil
	}

	receipt, err := t.poller.GetUserOperationReceipt(ctx, opHash)
	if err != nil {
		t.metrics.IncPollError()
		t.logger.Warn("receipt poll failed, keeping previous status",
			"op_hash", opHash.Hex(), "error", err)
		return nil
	}
	if receipt == nil {
		return nil
	}

	t.mu.Lock()
	if receipt.Success {
		t.advanceLocked(opHash, StatusConfirmed, func(r *Record) {
			if receipt.ActualGasCost != nil {
				r.ActualGasCost = receipt.ActualGasCost.ToInt()
			}
		})
	} else {
		t.advanceLocked(opHash, StatusReverted, func(r *Record) {
			r.Reason = receipt.Reason
			if receipt.ActualGasCost != nil {
				r.ActualGasCost = receipt.ActualGasCost.ToInt()
			}
		})
	}
	t.mu.Unlock()
	return nil
}

// PollAll refreshes every non-terminal operation.
func (t *Tracker) PollAll(ctx context.Context) {
	t.mu.RLock()
	active := lo.FilterMap(lo.Values(t.entries), func(rec *Record, _ int) (common.Hash, bool) {
		return rec.OpHash, !rec.Status.IsTerminal()
	})
	t.mu.RUnlock()

	for _, opHash := range active {
		if ctx.Err() != nil {
			return
		}
		if err := t.Poll(ctx, opHash); err != nil {
			t.logger.Warn("poll error", "op_hash", opHash.Hex(), "error", err)
		}
	}
}

// EvictStale removes records that have been terminal for longer than the
// grace window and returns how many were dropped.
func (t *Tracker) EvictStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.graceWindow)
	evicted := 0
	for opHash, rec := range t.entries {
		if rec.Status.IsTerminal() && rec.UpdatedAt.Before(cutoff) {
			delete(t.entries, opHash)
			evicted++
		}
	}
	if evicted > 0 {
		t.logger.Debug("evicted stale records", "count", evicted)
	}
	return evicted
}

// StartPolling runs PollAll and EvictStale on the given interval until Stop
// is called.
func (t *Tracker) StartPolling(ctx context.Context, interval time.Duration) error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create poll scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			t.PollAll(ctx)
			t.EvictStale()
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}

	t.scheduler = scheduler
	scheduler.Start()
	t.logger.Info("operation polling started", "interval", interval)
	return nil
}

// Stop shuts the poll scheduler down.
func (t *Tracker) Stop() error {
	if t.scheduler == nil {
		return nil
	}
	if err := t.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown poll scheduler: %w", err)
	}
	t.scheduler = nil
	return nil
}
