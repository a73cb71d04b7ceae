// Package entities holds the records that flow through the reconciliation pipeline.
package entities

import "strings"

// PackageRecord is one working row: a registry package joined with at most one
// nomenclature candidate. Optional fields are nil when absent.
type PackageRecord struct {
	// Seq is the position of the row in the unified input. Ties are broken on it.
	Seq int

	NDC        string
	RxCUI      *string
	Candidates []string

	ProductNDC         string
	PackageDescription string
	ProprietaryName    string
	NonProprietaryName string
	DosageFormName     string
	RouteName          string
	LabelerName        string
	SubstanceName      string
	Strength           string
	StrengthUnit       string
	ApplicationNumber  string
	DEASchedule        string

	DoseUnitValue *string
	DoseUnit      *string
	DoseQuantity  *string
	DoseForm      *string

	FormClass    string
	RouteSimple  string
	CodeDosage   string
	PackageCount string

	ResolvedID *string

	DF          *string
	DFG         *string
	Description *string
	DosageForm  *string
	Synthesized bool

	DosageRoute   string
	APIMeasure    string
	CanonicalCode string
	ShortCode     string
}

// Ingredient is one active ingredient of a package.
type Ingredient struct {
	Substance string
	Strength  string
	Unit      string
}

// Ingredients splits the semicolon-delimited ingredient fields into aligned
// triples. Missing trailing values are left empty.
func (r *PackageRecord) Ingredients() []Ingredient {
	if r.SubstanceName == "" {
		return nil
	}

	names := splitList(r.SubstanceName)
	strengths := splitList(r.Strength)
	units := splitList(r.StrengthUnit)

	ingredients := make([]Ingredient, len(names))
	for i, name := range names {
		ingredients[i].Substance = name
		if i < len(strengths) {
			ingredients[i].Strength = strengths[i]
		}
		if i < len(units) {
			ingredients[i].Unit = units[i]
		}
	}
	return ingredients
}

// IngredientsAligned reports whether the substance, strength and unit lists have
// the same length.
func (r *PackageRecord) IngredientsAligned() bool {
	n := len(splitList(r.SubstanceName))
	return n == len(splitList(r.Strength)) && n == len(splitList(r.StrengthUnit))
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Str returns a pointer to s.
func Str(s string) *string {
	return &s
}

// Value dereferences p, returning "" for nil.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Equal compares two optional strings. Two nil values are equal.
func Equal(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
