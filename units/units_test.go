package units

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5, "5.0"},
		{0.5, "0.5"},
		{649.6, "649.6"},
		{0, "0.0"},
		{1e-05, "1e-05"},
		{0.0001, "0.0001"},
		{1e16, "1e+16"},
		{123456789012345, "123456789012345.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in))
	}
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 0.01, RoundTo(0.005, 2))
	assert.Equal(t, 2.67, RoundTo(2.675, 2)) // 2.675 is stored below the midpoint
	assert.Equal(t, 4.63, RoundTo(50/10.8, 2))
	assert.Equal(t, 120.0, RoundTo(123, -1))
}

func TestRoundNine(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{49.9, 50},
		{0.099, 0.1},
		{49, 50},
		{190, 200},
		{99, 100},
		{1.99, 2},
		{49.91, 49.91},
		{9, 9},
		{5, 5},
		{0.9, 1},
		{10.5, 10.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundNine(tt.in), "RoundNine(%v)", tt.in)
	}
}

func TestConvert(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		name         string
		unit         string
		value        string
		compareUnit  string
		compareCount float64
		substance    string
		wantUnit     string
		wantValue    string
	}{
		{"no denominator drop with zero count", "mg/mL", "5", "mL", 0, "LIDOCAINE", "mg/mL", "5.0"},
		{"scaled to package volume", "mg/mL", "5", "mL", 10, "LIDOCAINE", "mg/", "50.0"},
		{"grams to milligrams", "g/100mL", "1", "", 0, "DEXTROSE", "mg/mL", "10.0"},
		{"micrograms to milligrams", "ug/1", "50", "", 0, "LEVOTHYROXINE", "mg/", "0.05"},
		{"meq uses molar mass", "meq/mL", "2", "", 0, "POTASSIUM CHLORIDE", "mg/mL", "150.0"},
		{"unknown meq keeps unit", "meq/mL", "2", "", 0, "UNKNOWN", "meq/mL", "2.0"},
		{"international units", "[iU]/1", "20", "", 0, "BLEOMYCIN SULFATE", "[USP'U]/", "0.02"},
		{"value correction", "mg/1", "650", "", 0, "ACETAMINOPHEN", "mg/", "649.6"},
		{"weight correction", "mg/g", "10", "g", 28.35, "LIDOCAINE", "mg/", "300.0"},
		{"denominator correction", "mg/1.54mL", "1", "", 0, "POTASSIUM CHLORIDE", "mg/mL", "0.67"},
		{"multiple ingredients", "mg/mL; mg/mL", "10; 5", "", 0, "A; B", "mg/mL; mg/mL", "10.0; 5.0"},
		{"unit without denominator passes through", "mg", "5", "", 0, "X", "mg", "5.0"},
		{"trailing nine rounded", "mg/mL", "4.99", "", 0, "X", "mg/mL", "5.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, value := Convert(tables, tt.unit, tt.value, tt.compareUnit, tt.compareCount, tt.substance)
			assert.Equal(t, tt.wantUnit, unit)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestConvertUnparsableValuePassesThrough(t *testing.T) {
	unit, value := Convert(DefaultTables(), "mg/mL", "abc", "mL", 10, "X")
	assert.Equal(t, "mg/mL", unit)
	assert.Equal(t, "abc", value)
}

func TestParseStrengths(t *testing.T) {
	values, err := ParseStrengths("5; 0.25;10")
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0.25, 10}, values)

	_, err = ParseStrengths("5; n/a")
	assert.Error(t, err)
}

func TestTablesLookupMissIsNoop(t *testing.T) {
	tables := DefaultTables()
	assert.Equal(t, 12.5, tables.Value("NOT A SUBSTANCE", 12.5))
	assert.Equal(t, 649.6, tables.Value("ACETAMINOPHEN", 650))
	assert.Equal(t, 30.0, tables.Weight("HYDROCORTISONE", 28.35))
	assert.Equal(t, 7.0, tables.Weight("HYDROCORTISONE", 7))

	factor, unit, ok := tables.Mole("SODIUM CHLORIDE", "meq")
	assert.True(t, ok)
	assert.Equal(t, 58.5, factor)
	assert.Equal(t, "mg", unit)
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.yaml")
	content := `
value:
  ACETAMINOPHEN:
    650: 650
  NEW SUBSTANCE:
    12: 10
milliequivalent:
  SODIUM BICARBONATE: 84
international_unit:
  HEPARIN SODIUM:
    factor: 0.5
    unit: mg
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.Equal(t, 650.0, tables.Value("ACETAMINOPHEN", 650))
	assert.Equal(t, 10.0, tables.Value("NEW SUBSTANCE", 12))
	assert.Equal(t, 20.0, tables.Value("ACETIC ACID", 20.65), "defaults are kept")

	factor, unit, ok := tables.Mole("SODIUM BICARBONATE", "meq")
	assert.True(t, ok)
	assert.Equal(t, 84.0, factor)
	assert.Equal(t, "mg", unit)

	factor, unit, ok = tables.Mole("HEPARIN SODIUM", "[iU]")
	assert.True(t, ok)
	assert.Equal(t, 0.5, factor)
	assert.Equal(t, "mg", unit)

	assert.Equal(t, 649.6, DefaultTables().Value("ACETAMINOPHEN", 650), "defaults are not mutated")
}

func TestLoadTablesMissingFile(t *testing.T) {
	_, err := LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
