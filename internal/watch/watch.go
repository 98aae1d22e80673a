// Package watch runs the announce pipeline on a cron schedule.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "icalmasto/internal/log"
)

// Announcer is the single pipeline step the watcher drives on each
// tick. now is the reference time for upcoming-event selection.
type Announcer interface {
	AnnounceOnce(ctx context.Context, now time.Time) error
}

type Watcher struct {
	cron      *cron.Cron
	spec      string
	announcer Announcer
}

// New creates a watcher firing per the cron spec, evaluated in loc.
func New(spec string, loc *time.Location, a Announcer) *Watcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Watcher{
		cron:      cron.New(cron.WithLocation(loc)),
		spec:      spec,
		announcer: a,
	}
}

// Start registers the schedule and blocks until ctx is canceled. An
// announce failure on one tick is logged, not fatal: the next tick
// retries against the live feed.
func (w *Watcher) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.spec, func() {
		tickCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		if err := w.announcer.AnnounceOnce(tickCtx, time.Now()); err != nil {
			appLog.Error("watch: announce failed", err)
		}
	})
	if err != nil {
		return fmt.Errorf("add schedule %q: %w", w.spec, err)
	}

	appLog.Info("watch started", "schedule", w.spec)
	w.cron.Start()

	<-ctx.Done()

	appLog.Info("watch stopping")
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()

	return nil
}
