// Package watchdog pings every registered long-running loop on a fixed
// interval and restarts any loop that has gone stale, per the liveness
// requirement.
package watchdog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/r3e-network/governance-core/internal/logger"
)

// loop is one registered long-running background task. heartbeat is
// updated by the loop itself each time it completes a unit of work;
// restart is invoked when the watchdog judges the loop stuck.
type loop struct {
	name      string
	heartbeat int64 // unix nanos, atomic
	stale     time.Duration
	restart   func(ctx context.Context) error
}

// Watchdog owns the registry of monitored loops and the cron schedule that
// pings them.
type Watchdog struct {
	mu    sync.RWMutex
	loops map[string]*loop
	cron  *cron.Cron
	log   *logger.Logger
}

// New builds a Watchdog that checks every loop on a fixed interval
// (default 30s).
func New(interval time.Duration, log *logger.Logger) *Watchdog {
	if log == nil {
		log = logger.NewDefault("watchdog")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	w := &Watchdog{loops: make(map[string]*loop), log: log}
	w.cron = cron.New()
	w.cron.AddFunc("@every "+interval.String(), func() { w.checkAll(context.Background()) })
	return w
}

// Register adds a loop to the registry. stale is the maximum time
// allowed between heartbeats before the loop is considered stuck; restart
// is called (without the registry lock held) when that happens.
func (w *Watchdog) Register(name string, stale time.Duration, restart func(ctx context.Context) error) *Heartbeat {
	l := &loop{name: name, stale: stale, restart: restart}
	atomic.StoreInt64(&l.heartbeat, time.Now().UnixNano())

	w.mu.Lock()
	w.loops[name] = l
	w.mu.Unlock()

	return &Heartbeat{l: l}
}

// Heartbeat is the handle a monitored loop uses to report liveness.
type Heartbeat struct{ l *loop }

// Beat records that the loop made progress just now.
func (h *Heartbeat) Beat() {
	atomic.StoreInt64(&h.l.heartbeat, time.Now().UnixNano())
}

// Start launches the periodic check; an initial check runs immediately.
func (w *Watchdog) Start(ctx context.Context) {
	w.checkAll(ctx)
	w.cron.Start()
}

// Stop halts the periodic check.
func (w *Watchdog) Stop() {
	if w.cron != nil {
		w.cron.Stop()
	}
}

func (w *Watchdog) checkAll(ctx context.Context) {
	w.mu.RLock()
	loops := make([]*loop, 0, len(w.loops))
	for _, l := range w.loops {
		loops = append(loops, l)
	}
	w.mu.RUnlock()

	for _, l := range loops {
		last := time.Unix(0, atomic.LoadInt64(&l.heartbeat))
		if time.Since(last) <= l.stale {
			continue
		}
		w.log.WithField("loop", l.name).WithField("last_heartbeat", last).Warn("loop stuck, restarting")
		if l.restart == nil {
			continue
		}
		if err := l.restart(ctx); err != nil {
			w.log.WithField("loop", l.name).WithField("error", err).Error("loop restart failed")
			continue
		}
		atomic.StoreInt64(&l.heartbeat, time.Now().UnixNano())
		w.log.WithField("loop", l.name).Info("loop restarted")
	}
}
