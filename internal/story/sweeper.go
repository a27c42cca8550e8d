package story

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically deletes expired stories until its context is cancelled.
type Sweeper struct {
	svc      StoryService
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(svc StoryService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{svc: svc, interval: interval, logger: logger}
}

func (sw *Sweeper) Start(ctx context.Context) {
	ctx, sw.cancel = context.WithCancel(ctx)
	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()
		sw.run(ctx)
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
	sw.wg.Wait()
}

func (sw *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("story sweeper stopped")
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	n, err := sw.svc.SweepExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			sw.logger.Error("story sweep failed", zap.Error(err))
		}
		return
	}
	if n > 0 {
		sw.logger.Info("expired stories removed", zap.Int("count", n))
	}
}
