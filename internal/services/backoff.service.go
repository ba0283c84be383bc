package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labventory/pkg/logger"

	"gorm.io/gorm"
)

const (
	DefaultWriteRetries      = 3
	DefaultWriteInitialDelay = 100 * time.Millisecond
)

// sleepFor waits for d or until ctx is done. Tests swap it out to record delays.
var sleepFor = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetryableWrite reports whether a failed write is worth another attempt.
// Validation failures, missing rows and cancellations are final.
func IsRetryableWrite(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, gorm.ErrInvalidValue), errors.Is(err, gorm.ErrRecordNotFound):
		return false
	case errors.Is(err, ErrDuplicate):
		return false
	}
	return true
}

// WriteWithBackoff runs fn up to maxRetries times, doubling the wait after
// each retryable failure.
func WriteWithBackoff(
	ctx context.Context,
	fn func(context.Context) error,
	maxRetries int,
	initialDelay time.Duration,
) error {
	log := logger.NewWithContext(ctx, "services").Function("WriteWithBackoff")

	if maxRetries < 1 {
		maxRetries = 1
	}

	delay := initialDelay
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}

		if !IsRetryableWrite(err) {
			return err
		}

		if attempt == maxRetries {
			break
		}

		log.Warn("write failed, backing off", "attempt", attempt, "delay", delay, "error", err)
		if sleepErr := sleepFor(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}
