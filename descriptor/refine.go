package descriptor

import (
	"slices"
	"strings"

	"github.com/openqsrx/qumi-codes/entities"
)

// genericDoseForms carry no more information than the package form itself.
var genericDoseForms = []string{"Injectable Solution", "Injectable Suspension", "Injection"}

// Refine looks up the dose form, dose form group and description of the
// record's chosen candidate and derives its display dosage form.
func Refine(rec *entities.PackageRecord, g *Graph) {
	rec.DF, rec.DFG, rec.Description = nil, nil, nil

	if rxcui := entities.Value(rec.RxCUI); rxcui != "" && g != nil {
		lookup(rec, g, rxcui)
	}

	rec.DosageForm = dosageForm(rec.DF, rec.DoseForm)

	if rec.Description != nil && rec.DF != nil && rec.DosageForm != nil && *rec.DF != *rec.DosageForm {
		replaced := strings.ReplaceAll(*rec.Description, *rec.DF, *rec.DosageForm)
		rec.Description = &replaced
	}
}

func lookup(rec *entities.PackageRecord, g *Graph, rxcui string) {
	forms := g.Related(RelDoseFormOf, rxcui)
	formID, df, ok := g.firstString(TTYDoseForm, forms)
	if ok {
		rec.DF = &df
	} else if len(forms) > 0 {
		formID = forms[0]
	}

	if formID != "" {
		if _, dfg, ok := g.firstString(TTYDoseFormGroup, g.Related(RelInverseIsa, formID)); ok {
			normalized := normalizeDFG(dfg)
			rec.DFG = &normalized
		}
	}

	if _, desc, ok := g.firstString(TTYBrandedDrug, g.Related(RelTradenameOf, rxcui)); ok {
		rec.Description = &desc
		return
	}
	if desc, ok := g.String(TTYBrandedDrug, rxcui); ok {
		rec.Description = &desc
		return
	}
	if desc, ok := g.String(TTYClinicalDrug, rxcui); ok {
		rec.Description = &desc
	}
}

// normalizeDFG turns "Oral Product" into "ORAL".
func normalizeDFG(dfg string) string {
	if strings.Contains(dfg, " Product") {
		dfg = dfg[:len(dfg)-len(" Product")]
	}
	return strings.ToUpper(dfg)
}

func dosageForm(df, doseForm *string) *string {
	if df == nil || slices.Contains(genericDoseForms, *df) {
		if doseForm == nil {
			return nil
		}
		form := title(*doseForm)
		return &form
	}
	form := *df
	return &form
}
