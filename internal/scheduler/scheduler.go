// Package scheduler wires up the cron job that keeps the denormalized
// search blobs in sync. The listing write path marks edited listings dirty;
// this job periodically recomputes their blobs so free-text search stays
// accurate.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/wannasleep66/vibe-barter-sub001/internal/store"
)

// Scheduler wraps robfig/cron and manages the blob resync loop.
type Scheduler struct {
	cron     *cron.Cron
	listings store.ListingStore
	spec     string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(listings store.ListingStore, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		listings: listings,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one resync
// immediately so a backlog of dirty listings is repaired without waiting
// for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runResync(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	slog.Info("blob resync cron started", "spec", s.spec)

	go s.runResync(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	slog.Info("blob resync cron stopped")
}

func (s *Scheduler) runResync(ctx context.Context) {
	repaired, err := s.listings.ResyncSearchBlobs(ctx)
	if err != nil {
		slog.Error("search blob resync failed", "err", err)
		return
	}
	if repaired > 0 {
		slog.Info("search blobs resynced", "repaired", repaired)
	}
}
