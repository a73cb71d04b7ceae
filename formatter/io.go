package formatter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/logging"
)

// SheetName is the worksheet written to .xlsx output.
const SheetName = "QUMI Codes"

// ErrUnsupportedFormat is returned for output paths that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported table format")

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func checkFormat(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx":
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// WriteCSV writes the header and rows as comma-separated values.
func WriteCSV(w io.Writer, rows []entities.OutputRow, debug bool) error {
	header := Header(debug)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i := range rows {
		for j, col := range header {
			record[j] = rows[i].Field(col)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table to a single worksheet.
func WriteXLSX(path string, rows []entities.OutputRow, debug bool) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name worksheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open worksheet: %w", err)
	}

	header := Header(debug)
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	values := make([]string, len(header))
	for i := range rows {
		for j, col := range header {
			values[j] = rows[i].Field(col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(values)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush worksheet: %w", err)
	}
	return f.SaveAs(path)
}

func toCells(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

// Write persists rows to path, choosing the format from its extension. The
// table is written to a temporary file first and renamed into place, so a
// failed run never leaves a partial table behind.
func Write(path string, rows []entities.OutputRow, debug bool) error {
	if err := checkFormat(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".qumi-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temporary output in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if isXLSX(path) {
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := WriteXLSX(tmpPath, rows, debug); err != nil {
			return err
		}
	} else {
		if err := WriteCSV(tmp, rows, debug); err != nil {
			_ = tmp.Close()
			return err
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", tmpPath, err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	logging.Info("Code table written", "path", path, "rows", len(rows))
	return nil
}

// ReadFile reads a table written by Write. Unknown columns are ignored.
func ReadFile(path string) ([]entities.OutputRow, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}

	var records [][]string
	if isXLSX(path) {
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				logging.Warn("Failed to close workbook", "error", err)
			}
		}()
		records, err = f.GetRows(f.GetSheetName(0))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer func() {
			if err := file.Close(); err != nil {
				logging.Warn("Failed to close table", "error", err)
			}
		}()
		cr := csv.NewReader(file)
		cr.FieldsPerRecord = -1
		records, err = cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table", path)
	}

	header := records[0]
	rows := make([]entities.OutputRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		var row entities.OutputRow
		for j, col := range header {
			if j < len(rec) {
				row.SetField(col, rec[j])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
