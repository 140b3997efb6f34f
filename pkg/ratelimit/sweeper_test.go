package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeper_RunOnce(t *testing.T) {
	clock := newTestClock()
	state := NewState()
	l := New(state, Config{Window: time.Second, MaxRequests: 1, KeyPrefix: "api"}, WithClock(clock.Now))
	l.Check("a")
	l.Check("b")

	s := NewSweeper(state, "@every 1m")
	s.now = func() time.Time { return clock.Now().Add(time.Minute) }

	assert.Equal(t, 2, s.RunOnce())
	assert.Equal(t, 0, state.Len())
}

func TestSweeper_StartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSweeper(NewState(), "@every 1m")
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSweeper_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := NewSweeper(NewState(), "@every 1m")
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(NewState(), "every minute")
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestSweeper_StopReleasesContextWatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSweeper(NewState(), "@every 1m")
	require.NoError(t, s.Start(ctx))
	done := s.done

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not release the context watcher")
	}

	s.Stop()
	assert.False(t, s.IsRunning())
}
