package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAllRestartsStaleLoop(t *testing.T) {
	w := New(time.Hour, nil)
	restarted := false
	hb := w.Register("health-monitor", 10*time.Millisecond, func(ctx context.Context) error {
		restarted = true
		return nil
	})
	_ = hb

	time.Sleep(20 * time.Millisecond)
	w.checkAll(context.Background())

	assert.True(t, restarted)
}

func TestCheckAllLeavesFreshLoopAlone(t *testing.T) {
	w := New(time.Hour, nil)
	restarted := false
	w.Register("audit-writer", time.Hour, func(ctx context.Context) error {
		restarted = true
		return nil
	})

	w.checkAll(context.Background())
	assert.False(t, restarted)
}

func TestHeartbeatPreventsRestart(t *testing.T) {
	w := New(time.Hour, nil)
	restarted := false
	hb := w.Register("poller", 15*time.Millisecond, func(ctx context.Context) error {
		restarted = true
		return nil
	})

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; i < 6; i++ {
			<-ticker.C
			hb.Beat()
		}
		close(done)
	}()
	<-done

	w.checkAll(context.Background())
	assert.False(t, restarted)
}

func TestRestartErrorDoesNotPanic(t *testing.T) {
	w := New(time.Hour, nil)
	w.Register("flaky", 10*time.Millisecond, func(ctx context.Context) error {
		return assert.AnError
	})

	time.Sleep(20 * time.Millisecond)
	require.NotPanics(t, func() { w.checkAll(context.Background()) })
}
