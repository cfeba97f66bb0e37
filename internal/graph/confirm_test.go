package graph

import (
	"sync"
	"testing"
	"time"
)

func TestWaiterFirstSignalWins(t *testing.T) {
	t.Parallel()
	w := NewConfirmationWaiter()

	if !w.Approve() {
		t.Fatal("first signal must win")
	}
	if w.Deny() || w.Timeout() || w.Cancel() {
		t.Fatal("later signals must be no-ops")
	}
	if got := <-w.Wait(); got != DecisionApproved {
		t.Fatalf("got %s, want approved", got)
	}
}

func TestWaiterSettled(t *testing.T) {
	t.Parallel()
	w := NewConfirmationWaiter()
	if w.Settled() {
		t.Fatal("fresh waiter must not be settled")
	}
	w.Deny()
	if !w.Settled() {
		t.Fatal("resolved waiter must be settled")
	}
}

func TestWaiterWinnerNeverBlocks(t *testing.T) {
	t.Parallel()
	w := NewConfirmationWaiter()

	done := make(chan struct{})
	go func() {
		// Resolve before any reader exists; the buffered channel absorbs it.
		w.Timeout()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("resolving without a reader blocked")
	}
	if got := <-w.Wait(); got != DecisionTimedOut {
		t.Fatalf("got %s, want timed out", got)
	}
}

func TestWaiterConcurrentResolvers(t *testing.T) {
	t.Parallel()
	w := NewConfirmationWaiter()

	var wg sync.WaitGroup
	wins := make(chan Decision, 4)
	resolvers := []struct {
		d  Decision
		fn func() bool
	}{
		{DecisionApproved, w.Approve},
		{DecisionDenied, w.Deny},
		{DecisionTimedOut, w.Timeout},
		{DecisionCanceled, w.Cancel},
	}
	for _, r := range resolvers {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.fn() {
				wins <- r.d
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []Decision
	for d := range wins {
		winners = append(winners, d)
	}
	if len(winners) != 1 {
		t.Fatalf("got %d winners, want exactly 1", len(winners))
	}
	if got := <-w.Wait(); got != winners[0] {
		t.Fatalf("delivered %s, but %s won the race", got, winners[0])
	}
}

func TestDecisionString(t *testing.T) {
	t.Parallel()
	for d, want := range map[Decision]string{
		DecisionApproved: "approved",
		DecisionDenied:   "denied",
		DecisionTimedOut: "timed out",
		DecisionCanceled: "canceled",
	} {
		if got := d.String(); got != want {
			t.Fatalf("Decision(%d).String() = %q, want %q", d, got, want)
		}
	}
}
