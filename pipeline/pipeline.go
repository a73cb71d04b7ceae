// Package pipeline runs the reconciliation stages, from unified source rows to
// the published code table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openqsrx/qumi-codes/codes"
	"github.com/openqsrx/qumi-codes/descriptor"
	"github.com/openqsrx/qumi-codes/disambiguation"
	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/formatter"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/metrics"
	"github.com/openqsrx/qumi-codes/sources"
	"github.com/openqsrx/qumi-codes/units"
	"github.com/openqsrx/qumi-codes/validation"
)

// Compile-time check to ensure Pipeline implements the Generator interface
var _ interfaces.Generator = (*Pipeline)(nil)

// Stage names used in logs and metrics.
const (
	StageUnify        = "unify"
	StagePrepare      = "prepare"
	StageDisambiguate = "disambiguate"
	StageRefine       = "refine"
	StageCodes        = "codes"
	StageFormat       = "format"
)

// Options configures a Pipeline.
type Options struct {
	// Tables holds the unit correction tables. Nil means DefaultTables.
	Tables *units.Tables
	// AllowCollisions logs short-code collisions instead of failing the run.
	AllowCollisions bool
	// Debug adds the pre-hash canonical code to the output rows.
	Debug bool
}

// Pipeline turns a loaded dataset into output rows.
type Pipeline struct {
	opts      Options
	validator interfaces.RowValidator
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.Tables == nil {
		opts.Tables = units.DefaultTables()
	}
	return &Pipeline{
		opts:      opts,
		validator: validation.NewDataValidator(),
	}
}

// run carries the state of one Generate call.
type run struct {
	id       string
	records  []entities.PackageRecord
	failures failures
	report   *interfaces.DataQualityReport
}

func (p *Pipeline) stage(ctx context.Context, r *run, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", name, err)
	}

	logging.Info("Stage started", "run_id", r.id, "stage", name)
	start := time.Now()

	n, err := fn()
	if err != nil {
		logging.Error("Stage failed", "run_id", r.id, "stage", name, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}

	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	metrics.StageRecords.WithLabelValues(name).Set(float64(n))
	logging.Info("Stage finished", "run_id", r.id, "stage", name, "records", n, "duration", elapsed)
	return nil
}

// Generate runs every stage over ds. Nothing is written; callers persist the
// returned rows. A short-code collision fails the run unless AllowCollisions
// is set.
func (p *Pipeline) Generate(ctx context.Context, ds *entities.Dataset) (*entities.Result, *interfaces.DataQualityReport, error) {
	r := &run{
		id:       uuid.NewString(),
		failures: make(failures),
		report:   &interfaces.DataQualityReport{},
	}
	defer r.failures.publish()

	result := &entities.Result{RunID: r.id}
	start := time.Now()
	logging.Info("Generation started", "run_id", r.id)

	err := p.stage(ctx, r, StageUnify, func() (int, error) {
		var stats sources.UnifyStats
		r.records, stats = sources.Unify(ds)
		r.failures[metrics.FailureNDC] += stats.InvalidNDCs
		r.report.DroppedNDCs = stats.InvalidNDCs
		logging.Debug("Unify details",
			"run_id", r.id,
			"packages", stats.Packages,
			"unmatched", stats.Unmatched,
			"invalid_ndcs", stats.InvalidNDCs,
			"duplicate_ndcs", stats.DuplicateNDCs,
			"candidate_rows", stats.Candidates)
		return len(r.records), nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = p.stage(ctx, r, StagePrepare, func() (int, error) {
		for i := range r.records {
			prepare(&r.records[i], p.opts.Tables, r.failures)
		}
		return len(r.records), nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = p.stage(ctx, r, StageDisambiguate, func() (int, error) {
		r.records = disambiguation.Resolve(r.records)
		return len(r.records), nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = p.stage(ctx, r, StageRefine, func() (int, error) {
		graph := descriptor.NewGraph(ds.Relations, ds.Concepts)
		synthesized := 0
		for i := range r.records {
			rec := &r.records[i]
			descriptor.Refine(rec, graph)
			if rec.RxCUI != nil && rec.DF == nil {
				r.failures[metrics.FailureGraph]++
			}
			rec.DosageRoute = codes.DosageRoute(rec.FormClass, rec.DFG)
			rec.APIMeasure = codes.APIMeasure(rec.StrengthUnit)
			if rec.Description == nil {
				desc := descriptor.Synthesize(rec)
				rec.Description = &desc
				rec.Synthesized = true
				synthesized++
			}
		}
		logging.Debug("Refine details", "run_id", r.id, "synthesized", synthesized)
		return len(r.records), nil
	})
	if err != nil {
		return nil, nil, err
	}

	err = p.stage(ctx, r, StageCodes, func() (int, error) {
		index := codes.NewCollisionIndex()
		for i := range r.records {
			rec := &r.records[i]
			rec.CanonicalCode = codes.Canonical(rec)
			rec.ShortCode = codes.ShortCode(rec.CanonicalCode)

			c := index.Add(rec.ShortCode, rec.CanonicalCode)
			if c == nil {
				continue
			}
			metrics.CodeCollisions.Inc()
			result.Collisions++
			if !p.opts.AllowCollisions {
				return i, c
			}
			logging.Error("Short code collision",
				"run_id", r.id,
				"short_code", c.ShortCode,
				"existing", c.Existing,
				"incoming", c.Incoming)
		}
		return len(r.records), nil
	})
	if err != nil {
		return nil, nil, err
	}
	r.report.Collisions = result.Collisions

	err = p.stage(ctx, r, StageFormat, func() (int, error) {
		result.Rows = formatter.Format(r.records, p.opts.Debug)
		return len(result.Rows), nil
	})
	if err != nil {
		return nil, nil, err
	}

	if err := p.validator.ValidateRows(result.Rows); err != nil {
		var verrs *validation.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, nil, err
		}
		logging.Warn("Generated rows failed validation", "run_id", r.id, "errors", verrs.Total, "first", verrs.Errors[0].Error())
	}

	quality := p.validator.ReportDataQuality(r.records, result.Rows)
	quality.DroppedNDCs = r.report.DroppedNDCs
	quality.Collisions = r.report.Collisions

	metrics.LastRunTimestamp.SetToCurrentTime()
	logging.Info("Generation finished",
		"run_id", r.id,
		"rows", len(result.Rows),
		"unresolved", quality.UnresolvedNDCs,
		"synthesized", quality.SynthesizedDescriptions,
		"collisions", result.Collisions,
		"duration", time.Since(start))

	return result, quality, nil
}

// Run loads the sources and generates the table.
func (p *Pipeline) Run(ctx context.Context, loader interfaces.Loader) (*entities.Result, *interfaces.DataQualityReport, error) {
	ds, err := loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sources: %w", err)
	}
	return p.Generate(ctx, ds)
}
