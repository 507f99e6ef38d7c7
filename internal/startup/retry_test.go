package startup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/episodic/episodic/internal/downloader/types"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2,
	}
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.True(t, IsNetworkError(fmt.Errorf("qbittorrent login: %w", types.ErrClientUnavailable)))
	assert.False(t, IsNetworkError(fmt.Errorf("qbittorrent login: %w", types.ErrAuthFailed)))
	assert.True(t, IsNetworkError(errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")))
	assert.False(t, IsNetworkError(errors.New("invalid torrent file")))
}

func TestWithRetry_RecoversAfterUnavailable(t *testing.T) {
	logger := zerolog.Nop()
	calls := 0
	err := WithRetry(context.Background(), "login", fastRetry(), func(context.Context) error {
		calls++
		if calls < 3 {
			return types.ErrClientUnavailable
		}
		return nil
	}, &logger)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_AuthFailureNotRetried(t *testing.T) {
	logger := zerolog.Nop()
	calls := 0
	err := WithRetry(context.Background(), "login", fastRetry(), func(context.Context) error {
		calls++
		return types.ErrAuthFailed
	}, &logger)

	assert.ErrorIs(t, err, types.ErrAuthFailed)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_GivesUp(t *testing.T) {
	logger := zerolog.Nop()
	calls := 0
	err := WithRetry(context.Background(), "login", fastRetry(), func(context.Context) error {
		calls++
		return types.ErrClientUnavailable
	}, &logger)

	assert.ErrorIs(t, err, types.ErrClientUnavailable)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := fastRetry()
	cfg.InitialDelay = time.Hour
	err := WithRetry(ctx, "login", cfg, func(context.Context) error {
		return types.ErrClientUnavailable
	}, &logger)

	assert.ErrorIs(t, err, context.Canceled)
}
