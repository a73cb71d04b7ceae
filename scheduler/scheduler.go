// Package scheduler regenerates the code table on a daily schedule and
// publishes each run to the data container.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/formatter"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/metrics"
	"github.com/openqsrx/qumi-codes/validation"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// StaleAfter is how old the table may get before the monitor warns
const StaleAfter = 25 * time.Hour

// Options configures a Scheduler.
type Options struct {
	ScheduleTimes   string // gocron At() expression, e.g. "06:00;18:00"
	OutputFile      string
	ReferenceFile   string // previous table to diff against; may equal OutputFile
	MetricsTextfile string
	Debug           bool
	RunTimeout      time.Duration
}

// Scheduler handles table regeneration and health monitoring using dependency injection
type Scheduler struct {
	dataStore interfaces.DataStore
	loader    interfaces.Loader
	generator interfaces.Generator
	opts      Options
	scheduler *gocron.Scheduler

	stopOnce sync.Once
	stop     chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.Loader, generator interfaces.Generator, opts Options) *Scheduler {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = time.Hour
	}
	return &Scheduler{
		dataStore: dataStore,
		loader:    loader,
		generator: generator,
		opts:      opts,
		scheduler: gocron.NewScheduler(time.Local),
		stop:      make(chan struct{}),
	}
}

// Start runs a first generation, then schedules the next ones and starts
// health monitoring
func (s *Scheduler) Start() error {
	if err := s.updateData(); err != nil {
		logging.Error("Failed to perform initial generation", "error", err)
		return fmt.Errorf("initial generation failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.opts.ScheduleTimes).Do(func() {
		if err := s.updateData(); err != nil {
			logging.Error("Failed to regenerate codes", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule updates", "error", err, "times", s.opts.ScheduleTimes)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()
	s.startHealthMonitoring(time.Hour)

	return nil
}

// Stop stops the scheduler and the health monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
}

// updateData runs one generation and publishes it. A failed run keeps the
// previous table and is recorded in the data store.
func (s *Scheduler) updateData() error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Generation already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RunTimeout)
	defer cancel()

	if err := s.generate(ctx); err != nil {
		s.dataStore.RecordFailure(err)
		return err
	}
	return nil
}

func (s *Scheduler) generate(ctx context.Context) error {
	start := time.Now()
	logging.Info("Starting code generation", "output", s.opts.OutputFile)

	ds, err := s.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	result, report, err := s.generator.Generate(ctx, ds)
	if err != nil {
		return fmt.Errorf("failed to generate codes: %w", err)
	}

	// The reference may be the file about to be overwritten, so it is read first
	churn, err := s.compareWithReference(result.Rows)
	if err != nil {
		return err
	}

	if err := formatter.Write(s.opts.OutputFile, result.Rows, s.opts.Debug); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logQuality(result.RunID, report)

	s.dataStore.UpdateData(result, report, churn)

	if s.opts.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(s.opts.MetricsTextfile); err != nil {
			logging.Warn("Failed to export metrics", "error", err)
		}
	}

	logging.Info("Code generation completed",
		"run_id", result.RunID,
		"rows", len(result.Rows),
		"duration", time.Since(start).String())
	return nil
}

// compareWithReference diffs the new rows against the reference table. A
// missing reference yields a nil summary.
func (s *Scheduler) compareWithReference(rows []entities.OutputRow) (*interfaces.ChurnSummary, error) {
	if s.opts.ReferenceFile == "" {
		return nil, nil
	}

	reference, err := formatter.ReadFile(s.opts.ReferenceFile)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Info("No reference table, skipping churn", "reference", s.opts.ReferenceFile)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}

	changes, summary := validation.Compare(reference, rows)
	metrics.CodeChurn.WithLabelValues("changed").Set(float64(summary.Changed))
	metrics.CodeChurn.WithLabelValues("added").Set(float64(summary.Added))
	metrics.CodeChurn.WithLabelValues("removed").Set(float64(summary.Removed))

	if summary.Changed > 0 {
		logging.Warn("Short codes changed since the reference table",
			"changed", summary.Changed,
			"added", summary.Added,
			"removed", summary.Removed)
		for _, c := range changes {
			logging.Debug("Short code change", "change", c.String())
		}
	}
	return &summary, nil
}

func logQuality(runID string, report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}
	if len(report.DuplicateNDCs) > 0 {
		logging.Warn("Duplicate NDCs detected",
			"run_id", runID,
			"total", len(report.DuplicateNDCs),
			"ndc_list", report.DuplicateNDCs)
	}
	if report.MisalignedIngredients > 0 {
		logging.Warn("Packages with misaligned ingredient lists",
			"run_id", runID,
			"count", report.MisalignedIngredients)
	}
	if report.Collisions > 0 {
		logging.Warn("Short code collisions tolerated", "run_id", runID, "count", report.Collisions)
	}
}

// startHealthMonitoring warns when the table has not been refreshed for too long
func (s *Scheduler) startHealthMonitoring(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				lastUpdate := s.dataStore.GetLastUpdated()
				if time.Since(lastUpdate) > StaleAfter {
					logging.Warn("Codes haven't been regenerated in over 25 hours", "last_update", lastUpdate)
				}
			}
		}
	}()
}
