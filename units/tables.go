// Package units converts active-ingredient strengths to a common basis.
package units

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Conversion replaces a unit with another one, scaling the value by Factor.
type Conversion struct {
	Factor float64 `yaml:"factor"`
	Unit   string  `yaml:"unit"`
}

// Tables holds the per-substance correction factors used by Convert. A Tables
// value is never modified after construction and can be shared between runs.
type Tables struct {
	value             map[string]map[float64]float64
	denominator       map[string]map[float64]float64
	weight            map[string]map[float64]float64
	milliequivalent   map[string]float64
	internationalUnit map[string]Conversion
	uspUnit           map[string]Conversion
}

// tablesFile is the on-disk layout of a corrections file.
type tablesFile struct {
	Value             map[string]map[float64]float64 `yaml:"value"`
	Denominator       map[string]map[float64]float64 `yaml:"denominator"`
	Weight            map[string]map[float64]float64 `yaml:"weight"`
	Milliequivalent   map[string]float64             `yaml:"milliequivalent"`
	InternationalUnit map[string]Conversion          `yaml:"international_unit"`
	USPUnit           map[string]Conversion          `yaml:"usp_unit"`
}

// DefaultTables returns the published correction tables. Keys are exact
// substance names as they appear in the registry.
func DefaultTables() *Tables {
	return &Tables{
		// Labelled strengths that differ from the nomenclature by rounding.
		value: map[string]map[float64]float64{
			"ACETAMINOPHEN":                                             {650: 649.6},
			"ACETIC ACID":                                               {20.65: 20},
			"APRACLONIDINE HYDROCHLORIDE":                               {5.75: 5},
			"BENZOYL PEROXIDE; CLINDAMYCIN PHOSPHATE":                   {12: 10},
			"BETAMETHASONE DIPROPIONATE; CLOTRIMAZOLE":                  {0.64: 0.5},
			"BROMFENAC SODIUM":                                          {1.035: 0.9},
			"BUPIVACAINE HYDROCHLORIDE; EPINEPHRINE BITARTRATE":         {0.0091: 0.005},
			"CASPOFUNGIN ACETATE":                                       {5: div(50, 10.8), 7: div(70, 10.8)},
			"CEFAZOLIN SODIUM":                                          {225: div(500, 2.2)},
			"CLOBETASOL PROPIONATE":                                     {0.4625: 0.5},
			"DEFEROXAMINE MESYLATE":                                     {95: div(2000, div(2000.04, 95))},
			"DEXTROSE MONOHYDRATE; POTASSIUM CHLORIDE; SODIUM CHLORIDE": {.745: .75, 2.25: 2, 2.98: 3},
			"GEMCITABINE HYDROCHLORIDE":                                 {1: div(50, 52.6), 38: div(2000, 52.6)},
			"KETOTIFEN FUMARATE":                                        {0.35: 0.25},
			"LEVOTHYROXINE SODIUM":                                      {0.175: 0.18},
			"METHYLPHENIDATE":                                           {1.6: div(15, 9), 2.2: div(20, 9)},
			"NEOSTIGMINE METHYLSULFATE":                                 {1.02: 1},
			"OMEPRAZOLE MAGNESIUM":                                      {20.6: 20},
			"POTASSIUM CHLORIDE":                                        {7.46: 7.45, 40: div(3000, 74.5), 600: 596, 750: 745},
		},
		denominator: map[string]map[float64]float64{
			"CICLOPIROX":                {0.96: 1},
			"GEMCITABINE HYDROCHLORIDE": {26.3: div(50, 52.6) * 26.3},
			"POTASSIUM CHLORIDE":        {1.54: 1.5},
			"SODIUM PHOSPHATE, DIBASIC, UNSPECIFIED FORM; SODIUM PHOSPHATE, MONOBASIC, UNSPECIFIED FORM": {118: 133},
			"SULFACETAMIDE; SULFUR": {473.2: div(473.2, 473)},
		},
		weight: map[string]map[float64]float64{
			"ACETAMINOPHEN; DEXTROMETHORPHAN HYDROBROMIDE; DOXYLAMINE SUCCINATE": {236: 237},
			"BACITRACIN":            {28: 30, 28.4: 30},
			"BACITRACIN ZINC":       {28.35: 28},
			"CASPOFUNGIN ACETATE":   {10: 10.8},
			"CHOLESTYRAMINE":        {239.6: 239.4},
			"CLOTRIMAZOLE":          {28: 30, 28.35: 30},
			"DEFEROXAMINE MESYLATE": {5.3: div(500, 95), 21.1: 21.053},
			"DEXTROMETHORPHAN HYDROBROMIDE; GUAIFENESIN": {236: 237},
			"GUAIFENESIN":                  {237: 236},
			"HYDROCORTISONE":               {28: 30, 28.35: 30, 28.4: 30, 118: 120, 553.6: 554},
			"LIDOCAINE":                    {28: 30, 28.35: 30},
			"LIDOCAINE HYDROCHLORIDE":      {28.35: 28.3},
			"METRONIDAZOLE":                {59.7: 59},
			"MICONAZOLE NITRATE":           {28: 30},
			"SUCRALFATE":                   {414: 420},
			"SULFACETAMIDE SODIUM":         {473: 480},
			"SULFACETAMIDE SODIUM; SULFUR": {170.3: 170},
			"TOBRAMYCIN SULFATE":           {50: 30},
			"HYDROCORTISONE ACETATE; LIDOCAINE HYDROCHLORIDE": {28.35: 28.3},
			"UREA": {198.4: 198},
		},
		// milligrams per milliequivalent
		milliequivalent: map[string]float64{
			"POTASSIUM CHLORIDE": 74.5,
			"SODIUM CHLORIDE":    58.5,
		},
		internationalUnit: map[string]Conversion{
			"BLEOMYCIN SULFATE":            {Factor: div(1, 1000), Unit: "[USP'U]"},
			"HUMAN RHO(D) IMMUNE GLOBULIN": {Factor: div(1, 5000), Unit: "mg"},
		},
		uspUnit: map[string]Conversion{
			"PETROLATUM": {Factor: 1000, Unit: "mg"},
		},
	}
}

// LoadTables reads a YAML corrections file. Substances listed in the file
// replace the default entry for that substance; everything else keeps the
// default.
func LoadTables(path string) (*Tables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corrections file %s: %w", path, err)
	}

	var file tablesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse corrections file %s: %w", path, err)
	}

	t := DefaultTables()
	maps.Copy(t.value, file.Value)
	maps.Copy(t.denominator, file.Denominator)
	maps.Copy(t.weight, file.Weight)
	maps.Copy(t.milliequivalent, file.Milliequivalent)
	maps.Copy(t.internationalUnit, file.InternationalUnit)
	maps.Copy(t.uspUnit, file.USPUnit)

	return t, nil
}

// div divides in float64 so table entries match values computed at runtime
// rather than exact constant arithmetic.
func div(a, b float64) float64 {
	return a / b
}

func lookup(table map[string]map[float64]float64, substance string, n float64) float64 {
	if corrections, ok := table[substance]; ok {
		if corrected, ok := corrections[n]; ok {
			return corrected
		}
	}
	return n
}

// Value corrects a labelled strength.
func (t *Tables) Value(substance string, n float64) float64 {
	return lookup(t.value, substance, n)
}

// Denominator corrects the numeric prefix of a unit denominator, as in mg/5mL.
func (t *Tables) Denominator(substance string, n float64) float64 {
	return lookup(t.denominator, substance, n)
}

// Weight corrects a package volume or weight.
func (t *Tables) Weight(substance string, n float64) float64 {
	return lookup(t.weight, substance, n)
}

// Mole converts meq, [iU] and [USP'U] numerators. ok is false when the
// substance has no conversion for the unit.
func (t *Tables) Mole(substance, unit string) (factor float64, newUnit string, ok bool) {
	switch unit {
	case "meq":
		if f, found := t.milliequivalent[substance]; found {
			return f, "mg", true
		}
	case "[iU]":
		if c, found := t.internationalUnit[substance]; found {
			return c.Factor, c.Unit, true
		}
	case "[USP'U]":
		if c, found := t.uspUnit[substance]; found {
			return c.Factor, c.Unit, true
		}
	}
	return 1, unit, false
}
