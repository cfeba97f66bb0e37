package graph

import "sync/atomic"

// Decision is the outcome of one confirmation wait.
type Decision int

const (
	DecisionApproved Decision = iota
	DecisionDenied
	DecisionTimedOut
	DecisionCanceled
)

func (d Decision) String() string {
	switch d {
	case DecisionApproved:
		return "approved"
	case DecisionDenied:
		return "denied"
	case DecisionTimedOut:
		return "timed out"
	case DecisionCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ConfirmationWaiter guarantees exactly-once resumption of a pending
// confirmation: whichever of approve/deny/timeout/cancel wins the CAS sends
// the result; every later signal is a no-op. A deadlocked confirmation is a
// severity-1 defect, so the result channel is buffered and the winner never
// blocks.
type ConfirmationWaiter struct {
	settled atomic.Bool
	result  chan Decision
}

func NewConfirmationWaiter() *ConfirmationWaiter {
	return &ConfirmationWaiter{result: make(chan Decision, 1)}
}

func (w *ConfirmationWaiter) Approve() bool { return w.resolve(DecisionApproved) }
func (w *ConfirmationWaiter) Deny() bool    { return w.resolve(DecisionDenied) }
func (w *ConfirmationWaiter) Timeout() bool { return w.resolve(DecisionTimedOut) }
func (w *ConfirmationWaiter) Cancel() bool  { return w.resolve(DecisionCanceled) }

func (w *ConfirmationWaiter) resolve(d Decision) bool {
	if !w.settled.CompareAndSwap(false, true) {
		return false
	}
	w.result <- d
	return true
}

// Wait returns the channel the winning decision is delivered on.
func (w *ConfirmationWaiter) Wait() <-chan Decision {
	return w.result
}

// Settled reports whether a decision has already been recorded.
func (w *ConfirmationWaiter) Settled() bool {
	return w.settled.Load()
}
