package sources

import (
	"slices"
	"strings"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/ndc"
)

// Registry defaults for packages that list no strength or unit.
const (
	DefaultStrength = "1"
	DefaultUnit     = "mL/mL"
)

// UnifyStats counts what Unify dropped.
type UnifyStats struct {
	Packages      int
	Unmatched     int // packages without a product row
	InvalidNDCs   int
	DuplicateNDCs int
	Candidates    int // rows carrying a candidate identifier
}

// Unify joins packages with their products, normalizes NDCs and attaches one
// row per distinct RxNorm candidate. Packages without a candidate yield a
// single row with a nil RxCUI. Seq follows emission order.
func Unify(ds *entities.Dataset) ([]entities.PackageRecord, UnifyStats) {
	stats := UnifyStats{Packages: len(ds.Packages)}

	products := make(map[string]entities.RegistryRow, len(ds.Products))
	for _, p := range ds.Products {
		key := p[ColProductNDC]
		if _, exists := products[key]; !exists {
			products[key] = p
		}
	}

	candidates := make(map[string][]string)
	for _, link := range ds.NDCLinks {
		ids := candidates[link.NDC]
		if !slices.Contains(ids, link.RxCUI) {
			candidates[link.NDC] = append(ids, link.RxCUI)
		}
	}

	seen := make(map[string]struct{}, len(ds.Packages))
	records := make([]entities.PackageRecord, 0, len(ds.Packages))

	for _, pkg := range ds.Packages {
		product, ok := products[pkg[ColProductNDC]]
		if !ok {
			stats.Unmatched++
			continue
		}

		code := ndc.Normalize(pkg[ColPackageCode])
		if !ndc.IsCanonical(code) {
			stats.InvalidNDCs++
			continue
		}
		if _, dup := seen[code]; dup {
			stats.DuplicateNDCs++
			continue
		}
		seen[code] = struct{}{}

		base := newRecord(code, pkg, product)
		ids := candidates[code]
		base.Candidates = ids

		if len(ids) == 0 {
			base.Seq = len(records)
			records = append(records, base)
			continue
		}
		for _, id := range ids {
			rec := base
			rec.RxCUI = entities.Str(id)
			rec.Seq = len(records)
			records = append(records, rec)
			stats.Candidates++
		}
	}

	return records, stats
}

func newRecord(code string, pkg, product entities.RegistryRow) entities.PackageRecord {
	strength := product[ColStrength]
	if strength == "" {
		strength = DefaultStrength
	}
	unit := product[ColStrengthUnit]
	if unit == "" {
		unit = DefaultUnit
	}

	return entities.PackageRecord{
		NDC:                code,
		ProductNDC:         product[ColProductNDC],
		PackageDescription: strings.ReplaceAll(pkg[ColPackageDescription], "*", "/"),
		ProprietaryName:    product[ColProprietaryName],
		NonProprietaryName: product[ColNonProprietaryName],
		DosageFormName:     product[ColDosageFormName],
		RouteName:          product[ColRouteName],
		LabelerName:        product[ColLabelerName],
		SubstanceName:      product[ColSubstanceName],
		Strength:           strength,
		StrengthUnit:       unit,
		ApplicationNumber:  product[ColApplicationNumber],
		DEASchedule:        product[ColDEASchedule],
	}
}
