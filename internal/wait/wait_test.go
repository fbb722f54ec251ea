package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestPollerConditionMet(t *testing.T) {
	calls := 0
	p := Poller{Interval: time.Second, MaxAttempts: 5, Sleep: noSleep}

	ok, err := p.Wait(context.Background(), func() (bool, error) {
		calls++
		return calls == 3, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollerExhaustsAttempts(t *testing.T) {
	calls := 0
	p := Poller{Interval: time.Second, MaxAttempts: 4, Sleep: noSleep}

	ok, err := p.Wait(context.Background(), func() (bool, error) {
		calls++
		return false, nil
	})

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, calls, "must perform exactly MaxAttempts checks")
}

func TestPollerConditionErrorTreatedAsNotYet(t *testing.T) {
	calls := 0
	p := Poller{Interval: time.Second, MaxAttempts: 3, Sleep: noSleep}

	ok, err := p.Wait(context.Background(), func() (bool, error) {
		calls++
		if calls < 2 {
			return true, errors.New("dom detached")
		}
		return true, nil
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, calls)
}

func TestPollerContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Poller{Interval: time.Second, MaxAttempts: 10, Sleep: noSleep}
	ok, err := p.Wait(ctx, func() (bool, error) { return false, nil })

	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollerSleepsBetweenAttemptsOnly(t *testing.T) {
	sleeps := 0
	p := Poller{
		Interval:    time.Second,
		MaxAttempts: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			sleeps++
			return nil
		},
	}

	ok, err := p.Wait(context.Background(), func() (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, sleeps, "no sleep after the final attempt")
}

func TestSleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
