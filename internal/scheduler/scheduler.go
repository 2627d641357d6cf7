package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Every runs fn once per interval until ctx is done. A panic in fn is
// logged and the loop keeps going. Every blocks; run it in a goroutine.
func Every(ctx context.Context, logger *zap.Logger, name string, interval time.Duration, fn func(context.Context)) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("task", name))

	if interval <= 0 {
		logger.Warn("Periodic task disabled", zap.Duration("interval", interval))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Periodic task started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Periodic task stopped")
			return
		case <-ticker.C:
			if err := runSafely(ctx, fn); err != nil {
				logger.Error("Periodic task failed", zap.Error(err))
			}
		}
	}
}

func runSafely(ctx context.Context, fn func(context.Context)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn(ctx)
	return nil
}
