package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PassLock keeps concurrent runners from overlapping passes.
type PassLock interface {
	Acquire(ctx context.Context, holder string) (bool, error)
	Release(ctx context.Context, holder string) error
}

// Runner triggers the engine on a fixed interval. The interval must not
// exceed the candidate window or transitions fall out of it unseen.
type Runner struct {
	log      *slog.Logger
	engine   *Engine
	lock     PassLock
	interval time.Duration
}

func NewRunner(log *slog.Logger, engine *Engine, lock PassLock, interval time.Duration) *Runner {
	if interval <= 0 || interval > candidateWindow {
		interval = 5 * time.Minute
	}
	return &Runner{log: log, engine: engine, lock: lock, interval: interval}
}

func (r *Runner) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("notification runner stopping")
			return nil
		case <-t.C:
			r.pass(ctx)
		}
	}
}

func (r *Runner) pass(ctx context.Context) {
	holder := uuid.NewString()
	ok, err := r.lock.Acquire(ctx, holder)
	if err != nil {
		r.log.Error("pass lock acquire failed", "err", err)
		return
	}
	if !ok {
		r.log.Info("previous pass still running, skipping tick")
		return
	}
	defer func() {
		if err := r.lock.Release(ctx, holder); err != nil {
			r.log.Error("pass lock release failed", "err", err)
		}
	}()

	if err := r.engine.CheckOrderNotifications(ctx); err != nil {
		r.log.Error("notification pass failed", "err", err)
	}
}
