package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := sleepFor
	sleepFor = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleepFor = original })
	return &delays
}

func TestWriteWithBackoff_SucceedsAfterRetry(t *testing.T) {
	delays := recordSleeps(t)

	attempts := 0
	err := WriteWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	}, DefaultWriteRetries, DefaultWriteInitialDelay)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *delays)
}

func TestWriteWithBackoff_GivesUpAfterMaxRetries(t *testing.T) {
	delays := recordSleeps(t)
	transient := errors.New("connection reset")

	attempts := 0
	err := WriteWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return transient
	}, 3, 10*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "failed after 3 retries")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, *delays)
}

func TestWriteWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	delays := recordSleeps(t)

	attempts := 0
	err := WriteWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return gorm.ErrInvalidValue
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, gorm.ErrInvalidValue)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *delays)
}

func TestWriteWithBackoff_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := WriteWithBackoff(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("timeout talking to database")
	}, 3, time.Hour)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryableWrite(t *testing.T) {
	assert.False(t, IsRetryableWrite(nil))
	assert.False(t, IsRetryableWrite(context.DeadlineExceeded))
	assert.False(t, IsRetryableWrite(ErrDuplicate))
	assert.True(t, IsRetryableWrite(errors.New("too many connections")))
}
