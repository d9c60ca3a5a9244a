package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"meridiandb/src/engine"
)

// ValidationEngine type-checks values against schemas. Validation is a
// pure function of (schema, value, config): the engine never mutates the
// value, and malformed input is always turned into violations, never a
// panic.
type ValidationEngine struct {
	validators *ValidatorRegistry
	logger     *zap.SugaredLogger
}

func NewValidationEngine(validators *ValidatorRegistry, logger *zap.SugaredLogger) *ValidationEngine {
	return &ValidationEngine{
		validators: validators,
		logger:     logger,
	}
}

// Validate checks a value against the schema using the schema's own
// configuration.
func (e *ValidationEngine) Validate(s *Schema, v engine.Value) *Result {
	return e.ValidateWithConfig(s, v, s.Config)
}

// ValidateWithConfig runs the depth-first walk described by the schema
// with an explicit configuration. Violations are reported in field
// declaration order, then value occurrence order for arrays and unknown
// fields, so output is deterministic.
func (e *ValidationEngine) ValidateWithConfig(s *Schema, v engine.Value, cfg ValidationConfig) *Result {
	res := &Result{}

	obj, ok := v.AsObject()
	if !ok {
		res.add("$", ViolationTypeMismatch, "document root must be an object, got %s", v.Kind())
		return res
	}

	w := &walk{
		engine:    e,
		cfg:       cfg,
		res:       res,
		ancestors: []engine.Value{v},
	}

	// Required fields, in declaration order.
	for _, fc := range s.Fields() {
		if !fc.Required {
			continue
		}
		if _, present := obj.Get(fc.Name); !present {
			res.add(fc.Name, ViolationMissingRequiredField, "required field %q is missing", fc.Name)
			if w.halted() {
				return res
			}
		}
	}

	// Undeclared fields, in occurrence order. Only strict mode cares.
	if cfg.StrictMode {
		for _, key := range obj.Keys() {
			if _, declared := s.FieldByName(key); !declared {
				res.add(key, ViolationUnknownField, "field %q is not declared in schema %q", key, s.Name)
				if w.halted() {
					return res
				}
			}
		}
	}

	// Per-field dispatch, in declaration order.
	for _, fc := range s.Fields() {
		fv, present := obj.Get(fc.Name)
		if !present {
			continue
		}
		w.validateField(fc, fv, fc.Name, 0)
		if w.halted() {
			return res
		}
	}

	return res
}

// ValidateMany validates each value independently, continuing past
// failures. Results line up with the input slice.
func (e *ValidationEngine) ValidateMany(s *Schema, values []engine.Value) []*Result {
	results := make([]*Result, len(values))
	for i, v := range values {
		results[i] = e.Validate(s, v)
	}
	return results
}

// walk carries the mutable state of one validation pass.
type walk struct {
	engine    *ValidationEngine
	cfg       ValidationConfig
	res       *Result
	ancestors []engine.Value
}

func (w *walk) halted() bool {
	return w.cfg.FailFast && !w.res.OK()
}

func (w *walk) validateField(fc *FieldConstraint, v engine.Value, path string, depth int) {
	if w.halted() {
		return
	}
	if depth > w.cfg.MaxDepth {
		w.res.add(path, ViolationMaxDepthExceeded, "nesting depth %d exceeds limit %d", depth, w.cfg.MaxDepth)
		return
	}

	checked := v
	if !fc.Type.Matches(v) {
		coerced, ok := coerceForValidation(v, fc.Type, w.cfg.AllowTypeCoercion)
		if !ok {
			w.res.add(path, ViolationTypeMismatch, "expected %s, got %s", fc.Type, v.Kind())
			// The remaining checks are meaningless on the wrong type.
			return
		}
		checked = coerced
	}

	switch fc.Type {
	case FieldTypeString:
		w.checkString(fc, checked, path)
	case FieldTypeNumber:
		w.checkNumber(fc, checked, path)
	case FieldTypeArray:
		w.checkArray(fc, checked, path, depth)
	case FieldTypeObject:
		w.checkObject(fc, checked, path, depth)
	case FieldTypeBoolean, FieldTypeNull:
		// Type check only.
	}

	if w.halted() {
		return
	}
	w.runCustomValidators(fc, v, path)
}

func (w *walk) checkString(fc *FieldConstraint, v engine.Value, path string) {
	s, _ := v.AsString()

	if sc := fc.String; sc != nil {
		if sc.MinLength != nil && len(s) < *sc.MinLength {
			w.res.add(path, ViolationMinLength, "length %d is below minimum %d", len(s), *sc.MinLength)
			if w.halted() {
				return
			}
		}
		if sc.MaxLength != nil && len(s) > *sc.MaxLength {
			w.res.add(path, ViolationMaxLength, "length %d exceeds maximum %d", len(s), *sc.MaxLength)
			if w.halted() {
				return
			}
		}
		if !sc.patternMatches(s) {
			w.res.add(path, ViolationPatternMismatch, "value does not match pattern %q", sc.Pattern)
			if w.halted() {
				return
			}
		}
	}

	if w.cfg.ValidateFormats && fc.Format != FormatNone {
		if !CheckFormat(fc.Format, s) {
			w.res.add(path, ViolationFormatMismatch, "value is not a valid %s", fc.Format)
		}
	}
}

func (w *walk) checkNumber(fc *FieldConstraint, v engine.Value, path string) {
	n, _ := v.AsNumber()
	nc := fc.Numeric
	if nc == nil {
		return
	}

	if nc.Minimum != nil && n < *nc.Minimum {
		w.res.add(path, ViolationMinNotMet, "value %v is below minimum %v", n, *nc.Minimum)
		if w.halted() {
			return
		}
	}
	if nc.Maximum != nil && n > *nc.Maximum {
		w.res.add(path, ViolationMaxExceeded, "value %v exceeds maximum %v", n, *nc.Maximum)
		if w.halted() {
			return
		}
	}
	if nc.IntegerOnly && (math.IsNaN(n) || math.IsInf(n, 0) || math.Trunc(n) != n) {
		w.res.add(path, ViolationNotInteger, "value %v is not an integer", n)
		if w.halted() {
			return
		}
	}
	if nc.PositiveOnly && !(n > 0) {
		w.res.add(path, ViolationNotPositive, "value %v is not positive", n)
		if w.halted() {
			return
		}
	}
	if nc.MultipleOf != nil && *nc.MultipleOf != 0 {
		m := math.Abs(*nc.MultipleOf)
		r := math.Abs(math.Mod(n, m))
		if r > 1e-9 && math.Abs(r-m) > 1e-9 {
			w.res.add(path, ViolationNotMultiple, "value %v is not a multiple of %v", n, *nc.MultipleOf)
		}
	}
}

func (w *walk) checkArray(fc *FieldConstraint, v engine.Value, path string, depth int) {
	items, _ := v.AsArray()
	ac := fc.Array
	if ac == nil {
		return
	}

	if ac.MinItems != nil && len(items) < *ac.MinItems {
		w.res.add(path, ViolationMinItems, "array has %d items, minimum is %d", len(items), *ac.MinItems)
		if w.halted() {
			return
		}
	}
	if ac.MaxItems != nil && len(items) > *ac.MaxItems {
		w.res.add(path, ViolationMaxItems, "array has %d items, maximum is %d", len(items), *ac.MaxItems)
		if w.halted() {
			return
		}
	}
	if ac.UniqueItems {
		seen := make(map[string]struct{}, len(items))
		for i, item := range items {
			key := item.CanonicalString()
			if _, dup := seen[key]; dup {
				w.res.add(path, ViolationDuplicateItems, "duplicate item at index %d", i)
				break
			}
			seen[key] = struct{}{}
		}
		if w.halted() {
			return
		}
	}

	if ac.Items != nil {
		w.ancestors = append(w.ancestors, v)
		for i, item := range items {
			if w.halted() {
				break
			}
			w.validateField(ac.Items, item, fmt.Sprintf("%s[%d]", path, i), depth+1)
		}
		w.ancestors = w.ancestors[:len(w.ancestors)-1]
	}
}

func (w *walk) checkObject(fc *FieldConstraint, v engine.Value, path string, depth int) {
	obj, _ := v.AsObject()
	oc := fc.Object
	if oc == nil {
		return
	}

	w.ancestors = append(w.ancestors, v)
	defer func() { w.ancestors = w.ancestors[:len(w.ancestors)-1] }()

	for _, prop := range oc.Properties() {
		if !prop.Required {
			continue
		}
		if _, present := obj.Get(prop.Name); !present {
			w.res.add(path+"."+prop.Name, ViolationMissingRequiredField, "required property %q is missing", prop.Name)
			if w.halted() {
				return
			}
		}
	}

	// AdditionalAllowed is deliberately independent of the schema-level
	// strict mode.
	if !oc.AdditionalAllowed {
		for _, key := range obj.Keys() {
			if _, declared := oc.Property(key); !declared {
				w.res.add(path+"."+key, ViolationUnknownField, "property %q is not declared", key)
				if w.halted() {
					return
				}
			}
		}
	}

	for _, prop := range oc.Properties() {
		pv, present := obj.Get(prop.Name)
		if !present {
			continue
		}
		w.validateField(prop, pv, path+"."+prop.Name, depth+1)
		if w.halted() {
			return
		}
	}
}

func (w *walk) runCustomValidators(fc *FieldConstraint, v engine.Value, path string) {
	if len(fc.Validators) == 0 {
		return
	}
	for _, name := range fc.Validators {
		if w.halted() {
			return
		}
		if w.engine.validators == nil {
			w.res.add(path, ViolationCustomError, "validator %q is not registered", name)
			continue
		}
		cv, ok := w.engine.validators.Lookup(name)
		if !ok {
			w.res.add(path, ViolationCustomError, "validator %q is not registered", name)
			continue
		}
		ctx := &ValidationContext{
			Path:      path,
			Ancestors: append([]engine.Value(nil), w.ancestors...),
		}
		if err := cv.Validate(v, ctx); err != nil {
			w.res.add(path, ViolationCustomError, "%s", err.Error())
		}
	}
}

// coerceForValidation produces a stand-in value of the target type when
// coercion is enabled and the value is convertible. Stored data is never
// rewritten; the stand-in exists only for the duration of the checks.
func coerceForValidation(v engine.Value, target FieldType, allow bool) (engine.Value, bool) {
	if !allow {
		return v, false
	}
	switch target {
	case FieldTypeNumber:
		if s, ok := v.AsString(); ok {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return engine.Number(n), true
			}
		}
	case FieldTypeString:
		if n, ok := v.AsNumber(); ok {
			return engine.String(strconv.FormatFloat(n, 'g', -1, 64)), true
		}
	}
	return v, false
}
