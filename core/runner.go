package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Refresher re-primes the snapshot on a cron schedule so that cached
// answers stay within one refresh interval of the host.
type Refresher struct {
	FS   *FS
	Spec string
	Cron *cron.Cron
	log  *slog.Logger
	wg   sync.WaitGroup // the initial refresh started by Start
}

func NewRefresher(f *FS, spec string, log *slog.Logger) *Refresher {
	if log == nil {
		log = slog.Default()
	}
	return &Refresher{
		FS:   f,
		Spec: spec,
		Cron: cron.New(),
		log:  log,
	}
}

// Start schedules the refresh and also runs one immediately in the background.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.Cron.AddFunc(r.Spec, func() { r.RunOnce(ctx) })
	if err != nil {
		r.log.Error("failed to schedule snapshot refresh", "spec", r.Spec, "error", err)
		return err
	}
	r.log.Info("scheduled snapshot refresh", "spec", r.Spec)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.RunOnce(ctx)
	}()
	r.Cron.Start()
	return nil
}

// RunOnce refreshes the snapshot and persists it.
func (r *Refresher) RunOnce(ctx context.Context) {
	snap := r.FS.Snapshot()
	if snap == nil {
		return
	}
	if err := r.FS.Refresh(ctx); err != nil {
		r.log.Warn("snapshot refresh incomplete", "error", err)
	}
	if err := snap.Save(); err != nil {
		r.log.Warn("failed to save snapshot", "path", snap.Path, "error", err)
	}
}

// Stop stops scheduling and waits for running refreshes, including the
// initial one, to finish.
func (r *Refresher) Stop() {
	<-r.Cron.Stop().Done()
	r.wg.Wait()
}
