package codes

import (
	"slices"
	"strings"

	"github.com/openqsrx/qumi-codes/entities"
)

var (
	specificForms       = []string{"AMPULE", "SYRINGE"}
	specificDosageForms = []string{"Auto-Injector"}
	specificBrands      = []string{"solu-medrol"}
)

// Specifier returns the suffix that keeps otherwise identical products apart:
// the package form for ampules and syringes, the dosage form for
// auto-injectors, and the brand for a few proprietary formulations. Brands
// match in any case but always contribute the lower-case table entry.
func Specifier(doseForm, dosageForm, brand string) string {
	var b strings.Builder
	if slices.Contains(specificForms, doseForm) {
		b.WriteString(doseForm)
	}
	if slices.Contains(specificDosageForms, dosageForm) {
		b.WriteString(dosageForm)
	}
	for _, s := range specificBrands {
		if strings.EqualFold(s, brand) {
			b.WriteString(s)
			break
		}
	}
	return b.String()
}

// Canonical concatenates the resolved identifier, route class, converted
// strength and specifier into the pre-hash product code.
func Canonical(rec *entities.PackageRecord) string {
	return entities.Value(rec.ResolvedID) + rec.DosageRoute + rec.Strength +
		Specifier(entities.Value(rec.DoseForm), entities.Value(rec.DosageForm), rec.ProprietaryName)
}

// APIMeasure upper-cases an ingredient unit list and drops the empty
// denominators left by Convert: "mg/; mg/" becomes "MG; MG".
func APIMeasure(unit string) string {
	measure := strings.ToUpper(unit)
	measure = strings.ReplaceAll(measure, "/;", ";")
	return strings.TrimSuffix(measure, "/")
}
