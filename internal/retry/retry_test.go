package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestExecute(t *testing.T) {
	cfg := &Config{Attempts: 3, Interval: time.Millisecond}
	logger := zaptest.NewLogger(t)

	t.Run("succeeds on third attempt", func(t *testing.T) {
		calls := 0
		err := Execute(context.Background(), cfg, logger, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("down")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error after all attempts", func(t *testing.T) {
		calls := 0
		err := Execute(context.Background(), cfg, logger, func(context.Context) error {
			calls++
			return errors.New("still down")
		})
		require.Error(t, err)
		assert.Equal(t, "still down", err.Error())
		assert.Equal(t, 3, calls)
	})

	t.Run("nil config runs once", func(t *testing.T) {
		calls := 0
		err := Execute(context.Background(), nil, logger, func(context.Context) error {
			calls++
			return errors.New("fail")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid config", func(t *testing.T) {
		err := Execute(context.Background(), &Config{}, logger, func(context.Context) error { return nil })
		assert.ErrorContains(t, err, "invalid retry configuration")
	})
}
