// =============================================================================
// Attendance Dashboard - Manual Entry Validation
// =============================================================================
//
// This module validates a record typed in by a user before it is appended to
// the store. CSV-parsed records are NOT validated here: the parser keeps
// degraded rows visible instead of rejecting them.
//
// RULES (checked in this order, first failure wins):
//   1. id, name and department are required (after trimming)
//   2. total classes must be a number greater than zero
//   3. attended classes must be a number
//   4. neither count may be negative
//   5. attended classes cannot exceed total classes
//
// Presence checks use go-playground/validator struct tags on types.Record;
// the arithmetic rules are written out because Count carries its own
// validity flag.
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ginjaninja78/attendance-dashboard/internal/types"
)

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// Rule names reported in ValidationError.Rule.
const (
	RuleRequired       = "required"
	RulePositiveTotal  = "positive_total"
	RuleNumeric        = "numeric"
	RuleNonNegative    = "non_negative"
	RuleAttendedBounds = "attended_lte_total"
)

// ValidationError describes the first rule a manual entry violated.
type ValidationError struct {
	// Field is the JSON name of the offending field (id, name, dept, ...).
	Field string

	// Value is the offending value as text.
	Value string

	// Rule is one of the Rule* constants.
	Rule string

	// Message is shown to the user as-is.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks manual entries.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that reports JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

var defaultValidator = NewValidator()

// Validate checks a record with the package default validator.
func Validate(r types.Record) error {
	return defaultValidator.Validate(r)
}

// Validate returns nil or a *ValidationError for the first violated rule.
func (v *Validator) Validate(r types.Record) error {
	trimmed := r.Normalize()

	// =========================================================================
	// REQUIRED FIELDS
	// =========================================================================

	if err := v.validate.Struct(trimmed); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &ValidationError{
				Field:   fe.Field(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Rule:    RuleRequired,
				Message: fmt.Sprintf("%s is required", describe(fe.Field())),
			}
		}
		return fmt.Errorf("failed to validate record: %w", err)
	}

	// =========================================================================
	// ARITHMETIC SANITY
	// =========================================================================

	total, attended := r.TotalClasses, r.AttendedClasses

	if !total.Valid || total.Value == 0 {
		return &ValidationError{
			Field:   "total",
			Value:   total.String(),
			Rule:    RulePositiveTotal,
			Message: "total classes must be a number greater than zero",
		}
	}

	if !attended.Valid {
		return &ValidationError{
			Field:   "attended",
			Value:   attended.String(),
			Rule:    RuleNumeric,
			Message: "attended classes must be a number",
		}
	}

	if total.Value < 0 || attended.Value < 0 {
		field, value := "total", total
		if total.Value >= 0 {
			field, value = "attended", attended
		}
		return &ValidationError{
			Field:   field,
			Value:   value.String(),
			Rule:    RuleNonNegative,
			Message: fmt.Sprintf("%s cannot be negative", describe(field)),
		}
	}

	if attended.Value > total.Value {
		return &ValidationError{
			Field:   "attended",
			Value:   attended.String(),
			Rule:    RuleAttendedBounds,
			Message: "attended cannot exceed total classes",
		}
	}

	return nil
}

// describe maps a JSON field name to user-facing wording.
func describe(field string) string {
	switch field {
	case "id":
		return "student ID"
	case "name":
		return "name"
	case "dept":
		return "department"
	case "total":
		return "total classes"
	case "attended":
		return "attended classes"
	default:
		return field
	}
}
