// Package data holds the latest generated code table. Readers see either the
// previous run or the new one, never a mix.
package data

import (
	"sync/atomic"
	"time"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is one published run. It is replaced as a whole.
type snapshot struct {
	runID  string
	rows   []entities.OutputRow
	report *interfaces.DataQualityReport
	churn  *interfaces.ChurnSummary
}

type failure struct {
	err error
}

// DataContainer holds the latest run with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Pointer[snapshot]
	lastUpdated     atomic.Value // time.Time
	lastFailure     atomic.Pointer[failure]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with empty data
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{
		rows:   make([]entities.OutputRow, 0),
		report: &interfaces.DataQualityReport{DuplicateNDCs: []string{}},
	})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func (dc *DataContainer) load() *snapshot {
	if s := dc.current.Load(); s != nil {
		return s
	}
	logging.Warn("Data container is empty")
	return &snapshot{}
}

// GetRows returns the rows of the latest run
func (dc *DataContainer) GetRows() []entities.OutputRow {
	if rows := dc.load().rows; rows != nil {
		return rows
	}
	return []entities.OutputRow{}
}

// GetRunID returns the id of the latest successful run, "" before the first one
func (dc *DataContainer) GetRunID() string {
	return dc.load().runID
}

// GetReport returns the data-quality report of the latest run
func (dc *DataContainer) GetReport() *interfaces.DataQualityReport {
	return dc.load().report
}

// GetChurn returns the short-code churn of the latest run, nil when no
// reference table was compared
func (dc *DataContainer) GetChurn() *interfaces.ChurnSummary {
	return dc.load().churn
}

// GetLastUpdated returns the timestamp of the last successful run
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// GetLastError returns the error of the latest run, nil if it succeeded
func (dc *DataContainer) GetLastError() error {
	if f := dc.lastFailure.Load(); f != nil {
		return f.err
	}
	return nil
}

// IsUpdating returns true if a generation is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically publishes a successful run and clears the last error
func (dc *DataContainer) UpdateData(result *entities.Result, report *interfaces.DataQualityReport, churn *interfaces.ChurnSummary) {
	if result == nil {
		logging.Warn("Ignoring empty run result")
		return
	}
	if report == nil {
		report = &interfaces.DataQualityReport{DuplicateNDCs: []string{}}
	}

	// Atomic swap (zero downtime replacement)
	dc.current.Store(&snapshot{
		runID:  result.RunID,
		rows:   result.Rows,
		report: report,
		churn:  churn,
	})
	dc.lastFailure.Store(nil)
	dc.lastUpdated.Store(time.Now())
}

// RecordFailure keeps the previous rows and remembers why the run failed
func (dc *DataContainer) RecordFailure(err error) {
	if err == nil {
		return
	}
	dc.lastFailure.Store(&failure{err: err})
}

// BeginUpdate marks the start of a generation
// Returns true if it can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a generation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
