// Package sources loads the FDA NDC directory tables and the RxNorm database and
// unifies them into working records.
package sources

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/logging"
)

// ErrMissingColumn is returned when a source lacks a required table or column.
var ErrMissingColumn = errors.New("missing required column")

// Registry column names.
const (
	ColProductNDC         = "PRODUCTNDC"
	ColPackageCode        = "NDCPACKAGECODE"
	ColPackageDescription = "PACKAGEDESCRIPTION"
	ColProprietaryName    = "PROPRIETARYNAME"
	ColNonProprietaryName = "NONPROPRIETARYNAME"
	ColDosageFormName     = "DOSAGEFORMNAME"
	ColRouteName          = "ROUTENAME"
	ColLabelerName        = "LABELERNAME"
	ColSubstanceName      = "SUBSTANCENAME"
	ColStrength           = "ACTIVE_NUMERATOR_STRENGTH"
	ColStrengthUnit       = "ACTIVE_INGRED_UNIT"
	ColApplicationNumber  = "APPLICATIONNUMBER"
	ColDEASchedule        = "DEASCHEDULE"
)

// PackageColumns and ProductColumns are the headers each registry table must carry.
var (
	PackageColumns = []string{ColProductNDC, ColPackageCode, ColPackageDescription}
	ProductColumns = []string{
		ColProductNDC, ColProprietaryName, ColNonProprietaryName, ColDosageFormName,
		ColRouteName, ColLabelerName, ColSubstanceName, ColStrength, ColStrengthUnit,
		ColApplicationNumber, ColDEASchedule,
	}
)

// ReadRegistry reads an FDA directory table. Files ending in .txt are
// tab-delimited, anything else is comma-delimited. Content that is not valid
// UTF-8 is decoded as ISO-8859-1.
func ReadRegistry(path string, required []string) ([]entities.RegistryRow, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var reader io.Reader
	if utf8.Valid(content) {
		reader = bytes.NewReader(content)
	} else {
		logging.Debug("Decoding registry file as ISO-8859-1", "path", path)
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(content))
	}

	r := csv.NewReader(reader)
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		r.Comma = '\t'
	}
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("%s: %w: %s", path, ErrMissingColumn, col)
		}
	}

	var rows []entities.RegistryRow
	lineCount := 1
	skippedEmptyLines := 0

	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		lineCount++

		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			skippedEmptyLines++
			continue
		}

		row := make(entities.RegistryRow, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = strings.TrimSpace(fields[i])
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	logging.Debug("Registry file read",
		"path", path,
		"lines", lineCount,
		"rows", len(rows),
		"skipped_empty", skippedEmptyLines)

	return rows, nil
}
