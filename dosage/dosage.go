// Package dosage extracts the dose quantity and package form from FDA package
// descriptions such as "1 VIAL in 1 CARTON / 10 mL in 1 VIAL".
package dosage

import (
	"regexp"
	"slices"
	"strings"
)

var descriptionRegex = regexp.MustCompile(`\s*(\d*\.\d+|\d+)\s*([^\d\(\)\s][^\(\)]*?)\s*in\s*(\d+)\s*([^\d\(\)\s][^\(\)]*)`)

// viableUnits are the measurable units a dose can be expressed in
var viableUnits = []string{"g", "h", "L", "mg", "mL"}

// Dosage is the innermost "<value> <unit> in <count> <form>" clause of a
// package description.
type Dosage struct {
	UnitValue *string
	Unit      *string
	Quantity  *string
	Form      *string
}

// Parsed reports whether any clause was recognized.
func (d Dosage) Parsed() bool {
	return d.UnitValue != nil || d.Unit != nil || d.Quantity != nil || d.Form != nil
}

// Parse reads the last "/" segment of a package description.
func Parse(description string) Dosage {
	parts := strings.Split(description, "/")
	last := parts[len(parts)-1]

	m := descriptionRegex.FindStringSubmatch(last)
	if m == nil {
		return Dosage{}
	}

	return Dosage{
		UnitValue: ptr(m[1]),
		Unit:      ptr(strings.TrimSpace(m[2])),
		Quantity:  ptr(m[3]),
		Form:      ptr(strings.TrimSpace(m[4])),
	}
}

// Adjust moves a non-measurable unit into the form slot. "30 TABLET in 1
// BOTTLE" is a count of tablets, not a dose volume.
func (d Dosage) Adjust() Dosage {
	if d.Unit != nil && slices.Contains(viableUnits, *d.Unit) {
		return d
	}
	return Dosage{
		Form:     d.Unit,
		Quantity: d.UnitValue,
	}
}

// Simplify cuts a form at its first comma: "VIAL, SINGLE-DOSE" becomes "VIAL".
func Simplify(form string) string {
	if i := strings.IndexByte(form, ','); i >= 0 {
		return form[:i]
	}
	return form
}

func ptr(s string) *string {
	return &s
}
