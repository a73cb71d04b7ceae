package formatter

import (
	"sort"

	"github.com/openqsrx/qumi-codes/entities"
)

// Header returns the output columns. Debug output carries the pre-hash
// canonical code after RXCUI.
func Header(debug bool) []string {
	if !debug {
		return append([]string(nil), entities.Columns...)
	}
	header := make([]string, 0, len(entities.Columns)+1)
	for _, col := range entities.Columns {
		header = append(header, col)
		if col == "RXCUI" {
			header = append(header, entities.PreHashColumn)
		}
	}
	return header
}

// Format turns finished records into standardized output rows sorted by
// (Dosage Route, QUMI Code, NDC).
func Format(records []entities.PackageRecord, debug bool) []entities.OutputRow {
	rows := make([]entities.OutputRow, 0, len(records))
	for i := range records {
		rec := &records[i]
		row := entities.OutputRow{
			NDC:                rec.NDC,
			RxCUI:              entities.Value(rec.RxCUI),
			QumiCode:           rec.ShortCode,
			PackageCount:       rec.PackageCount,
			Supplier:           rec.LabelerName,
			Description:        StandardizeDescription(entities.Value(rec.Description)),
			DosageForm:         entities.Value(rec.DosageForm),
			DosageRoute:        rec.DosageRoute,
			Strength:           StandardizeStrength(rec.Strength),
			Measure:            StandardizeMeasure(rec.APIMeasure),
			ANDA:               rec.ApplicationNumber,
			GenericDescription: ToHCl(rec.SubstanceName),
			DEA:                StandardizeDEA(rec.DEASchedule),
		}
		if debug {
			row.PreHashCode = rec.CanonicalCode
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := &rows[i], &rows[j]
		if a.DosageRoute != b.DosageRoute {
			return a.DosageRoute < b.DosageRoute
		}
		if a.QumiCode != b.QumiCode {
			return a.QumiCode < b.QumiCode
		}
		return a.NDC < b.NDC
	})
	return rows
}
