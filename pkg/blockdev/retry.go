package blockdev

import (
	"context"
	"fmt"
	"time"

	log "github.com/fclairamb/go-log"
)

const (
	InitRetryDelay = 10 * time.Millisecond
)

// InitWithRetry calls dev.Init until it succeeds, waiting delay between
// attempts. attempts <= 0 retries until ctx is done. Cards frequently
// refuse the first handshake after power-up.
func InitWithRetry(ctx context.Context, dev Device, attempts int, delay time.Duration, logger log.Logger) error {
	var err error

	for i := 1; attempts <= 0 || i <= attempts; i++ {
		if err = dev.Init(ctx); err == nil {
			return nil
		}

		if attempts > 0 && i == attempts {
			break
		}
		logger.Warn("Device init failed, retrying", "attempt", i, "err", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("device init interrupted: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("device init failed after %d attempts: %w", attempts, err)
}
