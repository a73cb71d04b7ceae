// Package validation checks generated code tables and reports data quality.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openqsrx/qumi-codes/codes"
	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/ndc"
)

// maxReportedErrors caps the per-row errors kept in ValidationErrors
const maxReportedErrors = 50

// ValidationError describes one invalid field of one row.
type ValidationError struct {
	NDC     string `json:"ndc"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %s", v.NDC, v.Field, v.Message)
}

// ValidationErrors collects the row errors of one table. Total counts every
// error even when only the first few are kept.
type ValidationErrors struct {
	Errors []ValidationError
	Total  int
}

func (v *ValidationErrors) Error() string {
	var messages []string
	for _, err := range v.Errors {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", v.Total, strings.Join(messages, "; "))
}

// DataValidatorImpl implements the interfaces.RowValidator interface
type DataValidatorImpl struct {
	validate *validator.Validate
}

// NewDataValidator creates a validator with the ndc and shortcode tags registered.
func NewDataValidator() interfaces.RowValidator {
	v := validator.New()

	if err := v.RegisterValidation("ndc", validateNDC); err != nil {
		logging.Error("Failed to register 'ndc' validator", "error", err)
	}
	if err := v.RegisterValidation("shortcode", validateShortCode); err != nil {
		logging.Error("Failed to register 'shortcode' validator", "error", err)
	}

	return &DataValidatorImpl{validate: v}
}

func validateNDC(fl validator.FieldLevel) bool {
	return ndc.IsCanonical(fl.Field().String())
}

func validateShortCode(fl validator.FieldLevel) bool {
	return codes.IsShortCode(fl.Field().String())
}

// ValidateRows checks every row against its struct tags and that NDCs are unique.
func (v *DataValidatorImpl) ValidateRows(rows []entities.OutputRow) error {
	result := &ValidationErrors{}
	add := func(e ValidationError) {
		result.Total++
		if len(result.Errors) < maxReportedErrors {
			result.Errors = append(result.Errors, e)
		}
	}

	seen := make(map[string]bool, len(rows))
	for i := range rows {
		row := &rows[i]
		if seen[row.NDC] {
			add(ValidationError{NDC: row.NDC, Field: "NDC", Message: "duplicate"})
		}
		seen[row.NDC] = true

		err := v.validate.Struct(row)
		if err == nil {
			continue
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate row %s: %w", row.NDC, err)
		}
		for _, fe := range fieldErrs {
			add(ValidationError{NDC: row.NDC, Field: fe.Field(), Message: message(fe)})
		}
	}

	if result.Total > 0 {
		return result
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "ndc":
		return fmt.Sprintf("%q is not a 5-4-2 NDC", fe.Value())
	case "shortcode":
		return fmt.Sprintf("%q is not a short code", fe.Value())
	case "oneof":
		return fmt.Sprintf("%q must be one of [%s]", fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// ReportDataQuality summarizes the resolved records and their output rows.
func (v *DataValidatorImpl) ReportDataQuality(
	records []entities.PackageRecord,
	rows []entities.OutputRow,
) *interfaces.DataQualityReport {
	report := &interfaces.DataQualityReport{
		DuplicateNDCs: []string{},
	}

	// Check 1: duplicate NDCs in the output
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.NDC]++
	}
	for code, n := range counts {
		if n > 1 {
			report.DuplicateNDCs = append(report.DuplicateNDCs, code)
		}
	}
	sort.Strings(report.DuplicateNDCs)

	// Check 2: record-level gaps
	for i := range records {
		rec := &records[i]
		if rec.RxCUI == nil {
			report.UnresolvedNDCs++
		}
		if rec.Synthesized {
			report.SynthesizedDescriptions++
		}
		if rec.DoseForm == nil && rec.DoseUnit == nil {
			report.UnparsedDosages++
		}
		if !rec.IngredientsAligned() {
			report.MisalignedIngredients++
		}
	}

	if len(report.DuplicateNDCs) > 0 {
		logging.Error("Duplicate NDCs detected",
			"count", len(report.DuplicateNDCs),
			"duplicates", report.DuplicateNDCs,
		)
	}

	return report
}
