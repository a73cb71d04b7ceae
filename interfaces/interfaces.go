// Package interfaces defines core abstractions for the code generator
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"time"

	"github.com/openqsrx/qumi-codes/entities"
)

// DataQualityReport provides a summary of data quality issues found in a run
type DataQualityReport struct {
	DuplicateNDCs           []string `json:"duplicateNdcs"`
	UnresolvedNDCs          int      `json:"unresolvedNdcs"`          // NDCs without any RxNorm candidate
	SynthesizedDescriptions int      `json:"synthesizedDescriptions"` // descriptions built from registry fields
	UnparsedDosages         int      `json:"unparsedDosages"`
	MisalignedIngredients   int      `json:"misalignedIngredients"`
	DroppedNDCs             int      `json:"droppedNdcs"` // registry rows whose NDC could not be normalized
	Collisions              int      `json:"collisions"`
}

// ChurnSummary counts short-code changes against a reference table
type ChurnSummary struct {
	Changed int `json:"changed"`
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Loader reads every pipeline input.
type Loader interface {
	Load(ctx context.Context) (*entities.Dataset, error)
}

// Generator runs the reconciliation pipeline over a loaded dataset.
type Generator interface {
	Generate(ctx context.Context, ds *entities.Dataset) (*entities.Result, *DataQualityReport, error)
}

// DataStore defines the contract for the latest-run storage.
// It provides thread-safe access with atomic swaps so readers never
// observe a half-written run.
type DataStore interface {
	GetRows() []entities.OutputRow
	GetRunID() string
	GetReport() *DataQualityReport
	GetChurn() *ChurnSummary
	GetLastUpdated() time.Time
	GetLastError() error
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateData(result *entities.Result, report *DataQualityReport, churn *ChurnSummary)
	RecordFailure(err error)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the health status, its details and the HTTP code to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled regeneration time
	CalculateNextUpdate() time.Time
}

// RowValidator checks generated rows before they are published.
type RowValidator interface {
	ValidateRows(rows []entities.OutputRow) error
	ReportDataQuality(records []entities.PackageRecord, rows []entities.OutputRow) *DataQualityReport
}
