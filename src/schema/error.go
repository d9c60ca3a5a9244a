package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ViolationKind classifies one specific way a value can fail validation.
type ViolationKind int

const (
	ViolationTypeMismatch ViolationKind = iota
	ViolationMissingRequiredField
	ViolationUnknownField
	ViolationMinLength
	ViolationMaxLength
	ViolationPatternMismatch
	ViolationFormatMismatch
	ViolationMinNotMet
	ViolationMaxExceeded
	ViolationNotInteger
	ViolationNotPositive
	ViolationNotMultiple
	ViolationMinItems
	ViolationMaxItems
	ViolationDuplicateItems
	ViolationMaxDepthExceeded
	ViolationCustomError
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationTypeMismatch:
		return "TypeMismatch"
	case ViolationMissingRequiredField:
		return "MissingRequiredField"
	case ViolationUnknownField:
		return "UnknownField"
	case ViolationMinLength:
		return "MinLengthNotMet"
	case ViolationMaxLength:
		return "MaxLengthExceeded"
	case ViolationPatternMismatch:
		return "PatternMismatch"
	case ViolationFormatMismatch:
		return "FormatMismatch"
	case ViolationMinNotMet:
		return "MinNotMet"
	case ViolationMaxExceeded:
		return "MaxExceeded"
	case ViolationNotInteger:
		return "NotInteger"
	case ViolationNotPositive:
		return "NotPositive"
	case ViolationNotMultiple:
		return "NotMultipleOf"
	case ViolationMinItems:
		return "MinItemsNotMet"
	case ViolationMaxItems:
		return "MaxItemsExceeded"
	case ViolationDuplicateItems:
		return "DuplicateItems"
	case ViolationMaxDepthExceeded:
		return "MaxDepthExceeded"
	case ViolationCustomError:
		return "CustomError"
	default:
		return "Unknown"
	}
}

// Violation is one constraint failure at a specific field path.
type Violation struct {
	Path    string
	Kind    ViolationKind
	Message string
}

func (v Violation) String() string {
	if v.Message == "" {
		return fmt.Sprintf("%s: %s", v.Path, v.Kind)
	}
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Kind, v.Message)
}

// Result is the outcome of validating one value: either success or an
// ordered, non-empty list of violations.
type Result struct {
	Violations []Violation
}

func (r *Result) OK() bool {
	return len(r.Violations) == 0
}

func (r *Result) add(path string, kind ViolationKind, format string, args ...interface{}) {
	r.Violations = append(r.Violations, Violation{
		Path:    path,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// Err converts a failed result into a *ValidationError, or nil on success.
func (r *Result) Err(schemaName string) error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Schema: schemaName, Violations: r.Violations}
}

// ValidationError carries the full violation list for a rejected write.
type ValidationError struct {
	Schema     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("schema %q validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

// Registry-level sentinel errors.
var (
	ErrDuplicateSchema = errors.New("schema already registered for collection")
	ErrSchemaNotFound  = errors.New("no schema registered for collection")
)
