package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/openqsrx/qumi-codes/entities"
)

// MockDataStore implements DataStore interface for testing
type MockDataStore struct {
	result      *entities.Result
	report      *DataQualityReport
	churn       *ChurnSummary
	lastUpdated time.Time
	lastErr     error
	updating    bool
}

func (m *MockDataStore) GetRows() []entities.OutputRow {
	if m.result == nil {
		return nil
	}
	return m.result.Rows
}

func (m *MockDataStore) GetRunID() string {
	if m.result == nil {
		return ""
	}
	return m.result.RunID
}

func (m *MockDataStore) GetReport() *DataQualityReport { return m.report }
func (m *MockDataStore) GetChurn() *ChurnSummary       { return m.churn }
func (m *MockDataStore) GetLastUpdated() time.Time     { return m.lastUpdated }
func (m *MockDataStore) GetLastError() error           { return m.lastErr }
func (m *MockDataStore) IsUpdating() bool              { return m.updating }
func (m *MockDataStore) GetServerStartTime() time.Time { return time.Time{} }
func (m *MockDataStore) RecordFailure(err error)       { m.lastErr = err }
func (m *MockDataStore) EndUpdate()                    { m.updating = false }

func (m *MockDataStore) UpdateData(result *entities.Result, report *DataQualityReport, churn *ChurnSummary) {
	m.result = result
	m.report = report
	m.churn = churn
	m.lastUpdated = time.Now()
	m.lastErr = nil
}

func (m *MockDataStore) BeginUpdate() bool {
	if m.updating {
		return false
	}
	m.updating = true
	return true
}

// MockLoader implements Loader interface for testing
type MockLoader struct {
	err error
}

func (m *MockLoader) Load(ctx context.Context) (*entities.Dataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &entities.Dataset{}, nil
}

// MockGenerator implements Generator interface for testing
type MockGenerator struct{}

func (m *MockGenerator) Generate(ctx context.Context, ds *entities.Dataset) (*entities.Result, *DataQualityReport, error) {
	return &entities.Result{
		RunID: "run-1",
		Rows:  []entities.OutputRow{{NDC: "00409-4888-02", QumiCode: "es04kqb"}},
	}, &DataQualityReport{UnresolvedNDCs: 1}, nil
}

var (
	_ DataStore = (*MockDataStore)(nil)
	_ Loader    = (*MockLoader)(nil)
	_ Generator = (*MockGenerator)(nil)
)

// runOnce is the load, generate, publish sequence every consumer of these
// contracts follows
func runOnce(ctx context.Context, store DataStore, loader Loader, gen Generator) error {
	if !store.BeginUpdate() {
		return nil
	}
	defer store.EndUpdate()

	ds, err := loader.Load(ctx)
	if err != nil {
		store.RecordFailure(err)
		return err
	}
	result, report, err := gen.Generate(ctx, ds)
	if err != nil {
		store.RecordFailure(err)
		return err
	}
	store.UpdateData(result, report, nil)
	return nil
}

func TestContracts_Publish(t *testing.T) {
	store := &MockDataStore{}

	if err := runOnce(context.Background(), store, &MockLoader{}, &MockGenerator{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.GetRunID() != "run-1" || len(store.GetRows()) != 1 {
		t.Errorf("Expected run-1 with 1 row, got %q with %d", store.GetRunID(), len(store.GetRows()))
	}
	if store.GetReport().UnresolvedNDCs != 1 {
		t.Errorf("Expected report to be published")
	}
	if store.IsUpdating() {
		t.Error("Update flag should be released")
	}
}

func TestContracts_Failure(t *testing.T) {
	store := &MockDataStore{}
	loadErr := errors.New("rxnorm database missing")

	err := runOnce(context.Background(), store, &MockLoader{err: loadErr}, &MockGenerator{})
	if !errors.Is(err, loadErr) {
		t.Fatalf("Expected %v, got %v", loadErr, err)
	}
	if !errors.Is(store.GetLastError(), loadErr) {
		t.Error("Failure should be recorded in the store")
	}
	if store.GetRunID() != "" {
		t.Error("Nothing should be published after a failure")
	}
}

func TestContracts_SkipWhileUpdating(t *testing.T) {
	store := &MockDataStore{updating: true}

	if err := runOnce(context.Background(), store, &MockLoader{}, &MockGenerator{}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if store.GetRunID() != "" {
		t.Error("A concurrent run should be skipped")
	}
}

func TestDataQualityReportJSON(t *testing.T) {
	report := DataQualityReport{
		DuplicateNDCs:  []string{"00409-4888-02"},
		UnresolvedNDCs: 2,
		Collisions:     1,
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	body := string(raw)
	for _, key := range []string{`"duplicateNdcs":["00409-4888-02"]`, `"unresolvedNdcs":2`, `"collisions":1`, `"droppedNdcs":0`} {
		if !strings.Contains(body, key) {
			t.Errorf("Expected %s in %s", key, body)
		}
	}
}
