// Package tracker follows submitted user operations through their lifecycle
// by polling the bundler until a terminal state is reached.
package tracker

// Status is the lifecycle state of a tracked user operation.
type Status int

const (
	// StatusPending means the operation is built locally, not yet accepted.
	StatusPending Status = iota
	// StatusSubmitted means the bundler accepted it into its mempool.
	StatusSubmitted
	// StatusBundled means the bundler reports it but it has no block yet.
	StatusBundled
	// StatusOnChain means the bundle transaction made it into a block.
	StatusOnChain
	// StatusConfirmed means the receipt reports successful execution.
	StatusConfirmed
	// StatusReverted means the account execution reverted on chain.
	StatusReverted
	// StatusFailed means the operation was dropped or timed out.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSubmitted:
		return "submitted"
	case StatusBundled:
		return "bundled"
	case StatusOnChain:
		return "onChain"
	case StatusConfirmed:
		return "confirmed"
	case StatusReverted:
		return "reverted"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusReverted, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving from one status to another is legal.
// Statuses only move forward; terminal states are sticky. Skipping ahead is
// allowed since a poll can observe several stages at once.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	return to > from
}
