package pipeline

import (
	"strconv"
	"strings"

	"github.com/openqsrx/qumi-codes/codes"
	"github.com/openqsrx/qumi-codes/dosage"
	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/metrics"
	"github.com/openqsrx/qumi-codes/units"
)

// failures counts recoverable parse failures of one run.
type failures map[string]int

func (f failures) publish() {
	for kind, n := range f {
		metrics.ParseFailures.WithLabelValues(kind).Add(float64(n))
	}
}

// prepare parses the package description, converts strengths and derives the
// coarse route class and composite key of a unified record.
func prepare(rec *entities.PackageRecord, tables *units.Tables, f failures) {
	d := dosage.Parse(rec.PackageDescription)
	if !d.Parsed() {
		f[metrics.FailureDescription]++
	}
	d = d.Adjust()

	rec.DoseUnitValue = d.UnitValue
	rec.DoseUnit = d.Unit
	rec.DoseQuantity = d.Quantity
	rec.DoseForm = nil
	if d.Form != nil {
		form := dosage.Simplify(*d.Form)
		rec.DoseForm = &form
	}

	compareCount := 0.0
	if d.UnitValue != nil {
		if v, err := strconv.ParseFloat(*d.UnitValue, 64); err == nil {
			compareCount = v
		}
	}

	if _, err := units.ParseStrengths(rec.Strength); err != nil {
		f[metrics.FailureStrength]++
	}
	for _, u := range strings.Split(rec.StrengthUnit, ";") {
		if !strings.Contains(u, "/") {
			f[metrics.FailureUnit]++
		}
	}
	rec.StrengthUnit, rec.Strength = units.Convert(tables, rec.StrengthUnit, rec.Strength,
		entities.Value(d.Unit), compareCount, rec.SubstanceName)

	rec.RouteSimple = codes.SimplifyRoute(rec.RouteName)
	rec.FormClass = codes.RouteClass(codes.FormClass(rec.DosageFormName), rec.RouteSimple, entities.Value(rec.DoseForm))
	rec.CodeDosage = rec.FormClass + rec.Strength
	rec.PackageCount = dosage.PackageCount(rec.PackageDescription)
}
