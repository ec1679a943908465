// Package timekeeper measures elapsed wall time across the phases of an
// operation, such as the build and submit halves of a send.
package timekeeper

import (
	"fmt"
	"time"
)

type ElapsingStatus int

const (
	Running ElapsingStatus = 1
	Pause   ElapsingStatus = 2
)

// Elapsing is a resettable stopwatch. Each Report returns the time since the
// previous Report, so one Elapsing can time consecutive phases.
type Elapsing struct {
	checkpoint time.Time

	carryOn time.Duration

	status ElapsingStatus
}

func NewElapsing() *Elapsing {
	elapse := &Elapsing{
		// time.Now carries the monotonic clock, so deltas are immune to
		// wall clock adjustments
		checkpoint: time.Now(),

		status: Running,
	}

	return elapse
}

// Pause freezes the elapsed time until Resume.
func (e *Elapsing) Pause() error {
	if e.status == Pause {
		return fmt.Errorf("already paused")
	}

	e.carryOn = e.Report()
	e.status = Pause

	return nil
}

func (e *Elapsing) Resume() error {
	if e.status != Pause {
		return fmt.Errorf("not paused")
	}

	e.checkpoint = time.Now()
	e.status = Running

	return nil
}

func (e *Elapsing) Reset() error {
	e.status = Running
	e.carryOn = 0
	e.checkpoint = time.Now()

	return nil
}

// Report returns the time elapsed since the last Report (or creation) and
// starts the next phase.
func (e *Elapsing) Report() time.Duration {
	if e.status == Pause {
		return time.Duration(0)
	}

	now := time.Now()
	total := now.Sub(e.checkpoint) + e.carryOn

	e.carryOn = time.Duration(0)
	e.checkpoint = now

	return total
}
