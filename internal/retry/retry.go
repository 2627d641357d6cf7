package retry

import (
	"context"
	"fmt"

	"github.com/avast/retry-go"
	"go.uber.org/zap"
)

// Func defines the function signature for a retryable operation.
type Func func(ctx context.Context) error

// Execute runs op up to cfg.Attempts times with a fixed pause between
// attempts. No pause follows the final attempt. The last error is returned.
func Execute(ctx context.Context, cfg *Config, logger *zap.Logger, op Func) error {
	if cfg == nil {
		return op(ctx)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid retry configuration: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return retry.Do(
		func() error { return op(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(cfg.Attempts)),
		retry.Delay(cfg.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug("Attempt failed",
				zap.Uint("attempt", n+1),
				zap.Int("attempts", cfg.Attempts),
				zap.Error(err))
		}),
	)
}
