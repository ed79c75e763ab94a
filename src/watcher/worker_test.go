package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/solana-gov-watch/src/realms"
	"github.com/stake-plus/solana-gov-watch/src/store"
)

func TestWorkerStopsBeforeFirstCycleOnCancelledContext(t *testing.T) {
	h := newHarness(t)
	h.setGovernance(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		NewWorker(h.engine, time.Hour).Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Zero(t, h.ledger.callCount(), "no ledger calls after cancellation")
	assert.Empty(t, h.dispatcher.sentMessages())
	_, err := h.store.GetNotifCache(h.cfg.GovernanceKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWorkerCyclesUntilCancelled(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	h.setGovernance(t, 1)
	h.addProposal(t, 0, realms.ProposalStateVoting, now.Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(h.engine, 10*time.Millisecond).Run(ctx)
		close(done)
	}()

	// wait for at least one completed cycle
	deadline := time.After(5 * time.Second)
	for len(h.dispatcher.sentMessages()) == 0 {
		select {
		case <-deadline:
			t.Fatal("no cycle completed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	sent := h.dispatcher.sentMessages()
	require.NotEmpty(t, sent)
	assert.Len(t, messagesWithTitle(sent, "New Proposal Detected"), 1,
		"repeat cycles stay deduplicated")
}
