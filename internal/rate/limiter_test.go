package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestTokenBucket_FirstWaitIsImmediate(t *testing.T) {
	defer goleak.VerifyNone(t)

	tb := NewTokenBucket(1)
	defer tb.Stop()

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	tb := NewTokenBucket(50)
	defer tb.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < 5; i++ {
		require.NoError(t, tb.Wait(ctx))
	}
}

func TestTokenBucket_WaitHonorsCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	tb := NewTokenBucket(1)
	defer tb.Stop()
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tb.Wait(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewTokenBucket_NonPositiveRate(t *testing.T) {
	defer goleak.VerifyNone(t)

	tb := NewTokenBucket(0)
	require.NoError(t, tb.Wait(context.Background()))
	tb.Stop()
}

func TestUnlimited(t *testing.T) {
	assert.NoError(t, Unlimited{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Unlimited{}.Wait(ctx))
}
