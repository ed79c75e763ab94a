package watcher

import (
	"context"
	"log"
	"time"
)

// Worker drives the reconciliation loop for one governance. A single worker
// owns its governance; cycles are never concurrent.
type Worker struct {
	engine   *Engine
	interval time.Duration
}

// NewWorker wraps an engine with a fixed-interval schedule.
func NewWorker(engine *Engine, interval time.Duration) *Worker {
	return &Worker{engine: engine, interval: interval}
}

// Run loops until ctx is cancelled. Cancellation is checked before every
// cycle and again during the sleep, and wins both races; after it fires no
// further ledger, store or dispatch calls are made.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %s: received exit signal", w.engine.cfg.GovernanceKey)
			return
		default:
		}

		if err := w.engine.Cycle(ctx, time.Now()); err != nil {
			log.Printf("worker %s: cycle failed: %v", w.engine.cfg.GovernanceKey, err)
		}

		select {
		case <-ctx.Done():
			log.Printf("worker %s: received exit signal", w.engine.cfg.GovernanceKey)
			return
		case <-time.After(w.interval):
		}
	}
}
