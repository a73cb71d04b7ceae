package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// unitRegex splits a compound unit such as "mg/5mL" into numerator prefix,
// numerator unit, denominator prefix and denominator unit.
var unitRegex = regexp.MustCompile(`^(\d*\.?\d*)?([^/]*)/(\d*\.?\d*)?([^/]*)`)

// Convert normalizes the semicolon-delimited strengths of a package to
// milligrams per denominator. When the denominator matches compareUnit and
// compareCount is non-zero, the strength is scaled to the whole package and the
// denominator is dropped, so "5 mg/mL" in a 10 mL vial becomes "50.0 mg/".
//
// Units and values are paired positionally. If the value list does not parse
// both inputs are returned unchanged.
func Convert(t *Tables, unit, value, compareUnit string, compareCount float64, substance string) (string, string) {
	values, err := ParseStrengths(value)
	if err != nil {
		return unit, value
	}

	units := strings.Split(unit, ";")
	n := min(len(units), len(values))

	newUnits := make([]string, 0, n)
	newValues := make([]string, 0, n)
	for i := 0; i < n; i++ {
		u, v := convertOne(t, strings.TrimSpace(units[i]), values[i], compareUnit, compareCount, substance)
		newUnits = append(newUnits, u)
		newValues = append(newValues, FormatFloat(v))
	}

	return strings.Join(newUnits, "; "), strings.Join(newValues, "; ")
}

// ParseStrengths parses a semicolon-delimited list of numbers.
func ParseStrengths(value string) ([]float64, error) {
	raw := strings.Split(value, ";")
	values := make([]float64, len(raw))
	for i, r := range raw {
		v, err := strconv.ParseFloat(strings.TrimSpace(r), 64)
		if err != nil {
			return nil, fmt.Errorf("strength %q: %w", value, err)
		}
		values[i] = v
	}
	return values, nil
}

func convertOne(t *Tables, unit string, v float64, compareUnit string, compareCount float64, substance string) (string, float64) {
	m := unitRegex.FindStringSubmatch(unit)
	if m == nil {
		return unit, v
	}
	beforeNum, beforeUnit, afterNum, afterUnit := m[1], m[2], m[3], m[4]

	v = t.Value(substance, v)
	factor := 1.0
	weight := 1.0

	switch beforeUnit {
	case "g":
		factor = 1000
		beforeUnit = "mg"
	case "ug":
		factor = 1.0 / 1000
		beforeUnit = "mg"
	case "meq", "[iU]", "[USP'U]":
		factor, beforeUnit, _ = t.Mole(substance, beforeUnit)
	}

	if compareUnit != "" && compareUnit == afterUnit && compareCount != 0 {
		weight = t.Weight(substance, compareCount)
		afterUnit = ""
	}

	numerator := 1.0
	if beforeNum != "" {
		if f, err := strconv.ParseFloat(beforeNum, 64); err == nil {
			numerator = f
		}
	}
	denominator := 1.0
	if afterNum != "" {
		if f, err := strconv.ParseFloat(afterNum, 64); err == nil {
			denominator = 1 / t.Denominator(substance, f)
		}
	}
	factor *= numerator * denominator

	return beforeUnit + "/" + afterUnit, RoundNine(RoundTo(v*factor*weight, 2))
}
