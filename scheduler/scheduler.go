// Package scheduler loads the reference tables at startup, reloads them on a
// cron schedule and warns when the active snapshot goes stale.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/metrics"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
	"github.com/go-co-op/gocron"
)

// Compile-time checks
var (
	_ interfaces.Scheduler       = (*Scheduler)(nil)
	_ interfaces.ReferenceLoader = (*refdata.Loader)(nil)
)

// Reload outcomes, used as metric labels.
const (
	ReloadSuccess = "success"
	ReloadPartial = "partial"
	ReloadFailed  = "failed"
	ReloadSkipped = "skipped"
)

// DefaultStaleAfter is how old the snapshot may get before a warning is logged.
const DefaultStaleAfter = 25 * time.Hour

// Scheduler handles reference reloads using dependency injection
type Scheduler struct {
	store      interfaces.ReferenceStore
	loader     interfaces.ReferenceLoader
	validator  interfaces.DataValidator
	schedule   string
	staleAfter time.Duration
	scheduler  *gocron.Scheduler
	reloadJob  *gocron.Job
	loaded     atomic.Bool
}

// NewScheduler creates a scheduler. An empty schedule disables periodic
// reloads; the tables are still loaded once by Start. validator may be nil.
func NewScheduler(store interfaces.ReferenceStore, loader interfaces.ReferenceLoader, validator interfaces.DataValidator, schedule string) *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	return &Scheduler{
		store:      store,
		loader:     loader,
		validator:  validator,
		schedule:   schedule,
		staleAfter: DefaultStaleAfter,
		scheduler:  s,
	}
}

// Start performs the initial load, then schedules reloads and the staleness check.
// A failed initial load is logged; the service starts with whatever loaded.
func (s *Scheduler) Start() error {
	if err := s.Reload(context.Background()); err != nil {
		logging.Error("Initial reference load incomplete", "error", err)
	}

	if s.schedule != "" {
		job, err := s.scheduler.Cron(s.schedule).Do(func() {
			if err := s.Reload(context.Background()); err != nil {
				logging.Error("Scheduled reference reload failed", "error", err)
			}
		})
		if err != nil {
			logging.Error("Failed to schedule reference reloads", "schedule", s.schedule, "error", err)
			return fmt.Errorf("failed to schedule reloads: %w", err)
		}
		s.reloadJob = job
	}

	if _, err := s.scheduler.Every(1).Hour().WaitForSchedule().Do(s.checkStaleness); err != nil {
		return fmt.Errorf("failed to schedule staleness check: %w", err)
	}

	s.scheduler.StartAsync()
	if s.reloadJob != nil {
		logging.Info("Reference reloads scheduled", "schedule", s.schedule, "next_run", s.NextReload().Format(time.RFC3339))
	}
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// NextReload returns when the next scheduled reload runs, or the zero time
// when reloads are disabled.
func (s *Scheduler) NextReload() time.Time {
	if s.reloadJob == nil {
		return time.Time{}
	}
	return s.reloadJob.NextRun()
}

// Reload loads fresh tables and swaps them in. The first load is always
// swapped in, even when a table failed. Later loads that fail keep the
// previous snapshot.
func (s *Scheduler) Reload(ctx context.Context) error {
	if !s.store.BeginUpdate() {
		logging.Info("Reference reload already in progress, skipping")
		metrics.ReferenceReloads.WithLabelValues(ReloadSkipped).Inc()
		return nil
	}
	defer s.store.EndUpdate()

	logging.Info("Starting reference reload")
	start := time.Now()

	snap, err := s.loader.Load(ctx)
	initial := !s.loaded.Load()
	if err != nil && !initial {
		metrics.ReferenceReloads.WithLabelValues(ReloadFailed).Inc()
		logging.Warn("Keeping previous reference snapshot", "error", err)
		return fmt.Errorf("reference reload failed: %w", err)
	}
	if snap == nil {
		metrics.ReferenceReloads.WithLabelValues(ReloadFailed).Inc()
		return fmt.Errorf("reference loader returned no snapshot: %w", err)
	}

	s.reportQuality(snap)
	s.store.Swap(snap)
	s.loaded.Store(true)

	status := ReloadSuccess
	if err != nil {
		status = ReloadPartial
	}
	metrics.ReferenceReloads.WithLabelValues(status).Inc()
	logging.Info("Reference reload completed", "duration", time.Since(start).String(), "status", status,
		"drugs", len(snap.Drugs), "interactions", len(snap.Interactions))

	if err != nil {
		return fmt.Errorf("reference load incomplete: %w", err)
	}
	return nil
}

func (s *Scheduler) reportQuality(snap *refdata.Snapshot) {
	if s.validator == nil {
		return
	}
	report := s.validator.ReportDataQuality(snap)

	if len(report.OrphanedInteractionKeys) > 0 {
		logging.Warn("Interactions name drugs missing from the dictionary",
			"count", len(report.OrphanedInteractionKeys), "keys", report.OrphanedInteractionKeys)
	}
	if len(report.SharedBrandNames) > 0 {
		logging.Warn("Brand names listed under more than one generic",
			"count", len(report.SharedBrandNames), "brands", report.SharedBrandNames)
	}
	if len(report.SelfPairKeys) > 0 {
		logging.Warn("Self-pair interaction entries", "keys", report.SelfPairKeys)
	}
	if len(report.IncompleteInteractionKeys) > 0 {
		logging.Warn("Interactions without mechanism or recommendation",
			"count", len(report.IncompleteInteractionKeys), "keys", report.IncompleteInteractionKeys)
	}
	if len(report.UnratedInteractionKeys) > 0 {
		logging.Warn("Interactions without a recognised risk level",
			"count", len(report.UnratedInteractionKeys), "keys", report.UnratedInteractionKeys)
	}
}

func (s *Scheduler) checkStaleness() {
	if age := time.Since(s.store.GetLastUpdated()); age > s.staleAfter {
		logging.Warn("Reference data is stale", "age", age.Round(time.Minute).String())
	}
}
