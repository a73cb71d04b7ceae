package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/formatter"
)

func setTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ENV", "test")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DATA_DIR", dir)
	t.Setenv("REFERENCE_FILE", filepath.Join(dir, "reference.csv"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := setTestEnv(t)

	reference := []entities.OutputRow{
		{NDC: "00409-4888-02", QumiCode: "90spcr0", Description: "Lidocaine HCl 20 mg/mL Vial", Strength: "200", Measure: "mg"},
		{NDC: "00002-8215-30", QumiCode: "8twxtar", Description: "Aspirin 81 mg Tablet", Strength: "81", Measure: "mg"},
	}
	current := []entities.OutputRow{
		{NDC: "00409-4888-02", QumiCode: "es04kqb", Description: "Lidocaine HCl 20 mg/mL Vial", Strength: "200", Measure: "mg"},
	}
	require.NoError(t, formatter.Write(filepath.Join(dir, "reference.csv"), reference, false))
	currentPath := filepath.Join(dir, "current.csv")
	require.NoError(t, formatter.Write(currentPath, current, false))

	out, err := execute(t, "validate", currentPath)
	require.NoError(t, err)

	assert.Contains(t, out, "00409-4888-02:\t90spcr0 -> es04kqb\tLidocaine HCl 20 mg/mL Vial \t200 mg")
	assert.Contains(t, out, "00002-8215-30:\t8twxtar -> NaN\tAspirin 81 mg Tablet \t81 mg")
}

func TestValidateCommand_ReferenceFlag(t *testing.T) {
	dir := setTestEnv(t)

	rows := []entities.OutputRow{{NDC: "00409-4888-02", QumiCode: "es04kqb", Description: "Lidocaine"}}
	other := filepath.Join(dir, "other.xlsx")
	require.NoError(t, formatter.Write(other, rows, false))
	currentPath := filepath.Join(dir, "current.csv")
	require.NoError(t, formatter.Write(currentPath, rows, false))

	out, err := execute(t, "validate", currentPath, "--reference", other)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateCommand_MissingReference(t *testing.T) {
	dir := setTestEnv(t)
	currentPath := filepath.Join(dir, "current.csv")
	require.NoError(t, formatter.Write(currentPath, []entities.OutputRow{{NDC: "00409-4888-02", QumiCode: "es04kqb"}}, false))

	_, err := execute(t, "validate", currentPath)
	assert.Error(t, err)
}

func TestGenerateCommand_MissingSources(t *testing.T) {
	dir := setTestEnv(t)

	_, err := execute(t, "generate", filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sources")
}

func TestInvalidLevel(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "--level", "verbose", "validate", "x.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --level")
}

func TestCommandArgs(t *testing.T) {
	setTestEnv(t)

	_, err := execute(t, "generate")
	assert.Error(t, err)

	_, err = execute(t, "schedule", "extra")
	assert.Error(t, err)
}

func TestDebugLevel(t *testing.T) {
	a := &app{level: "debug"}
	assert.True(t, a.debug())
	a.level = "info"
	assert.False(t, a.debug())
	assert.True(t, validLevel("critical"))
	assert.False(t, validLevel("trace"))
}
