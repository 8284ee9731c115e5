package worker

import (
	"context"
	"log/slog"
	"time"

	"supplyhub/internal/engine"
)

// SweepWorker periodically asks the engine to inspect orders stuck in a
// transitory state. A dropped event or stuck transaction otherwise leaves an
// order in-flight forever with nothing watching it.
type SweepWorker struct {
	engine     *engine.Engine
	interval   time.Duration
	stuckAfter time.Duration
}

func NewSweepWorker(eng *engine.Engine, interval, stuckAfter time.Duration) *SweepWorker {
	return &SweepWorker{
		engine:     eng,
		interval:   interval,
		stuckAfter: stuckAfter,
	}
}

func (w *SweepWorker) Start(ctx context.Context) {
	slog.Info("starting sweep worker", "interval", w.interval, "stuck_after", w.stuckAfter)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep worker stopped")
			return
		case <-ticker.C:
			if err := w.engine.Sweep(ctx, time.Now().Add(-w.stuckAfter)); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}
