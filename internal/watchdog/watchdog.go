package watchdog

import (
	"context"
	"time"

	"github.com/voxlabs/interviewd/internal/interview"
	"github.com/voxlabs/interviewd/pkg/Logger"
)

const reapEvery = 5 * time.Minute

// Watchdog periodically repairs sessions stuck in processing and
// rebroadcasts state so clients that missed an event resynchronize. It
// favors conversational continuity: a generic follow-up beats leaving a
// client blocked past the stall threshold.
type Watchdog struct {
	logger         *Logger.Logger
	service        *interview.Service
	interval       time.Duration
	stallThreshold time.Duration
	sessionTimeout time.Duration
}

func New(service *interview.Service, interval, stallThreshold, sessionTimeout time.Duration, logger *Logger.Logger) *Watchdog {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if stallThreshold <= 0 {
		stallThreshold = 45 * time.Second
	}
	return &Watchdog{
		logger:         logger,
		service:        service,
		interval:       interval,
		stallThreshold: stallThreshold,
		sessionTimeout: sessionTimeout,
	}
}

// Run ticks until ctx is cancelled. Inactive sessions are reaped on a
// slower cadence than the stall scan.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	reaper := time.NewTicker(reapEvery)
	defer reaper.Stop()

	w.logger.Infof("watchdog running: interval %s, stall threshold %s", w.interval, w.stallThreshold)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		case <-reaper.C:
			w.service.Registry().Reap(w.sessionTimeout)
		}
	}
}

// Tick scans every active session once. Exported so tests can drive the
// watchdog without a clock.
func (w *Watchdog) Tick() {
	for _, sess := range w.service.Registry().ActiveSessions() {
		view := sess.Snapshot()
		if view.State == interview.StateProcessing && time.Since(view.StateEnteredAt) > w.stallThreshold {
			w.logger.Warnf("session %s stuck in processing for %s", view.ID, time.Since(view.StateEnteredAt).Round(time.Second))
			w.service.RecoverStalled(view.ID)
			continue
		}
		w.service.BroadcastState(sess)
	}
}
