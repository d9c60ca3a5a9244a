package schema

import (
	"fmt"
	"regexp"

	"meridiandb/src/engine"
)

// FieldType is the declared type of a schema field.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeNumber
	FieldTypeBoolean
	FieldTypeArray
	FieldTypeObject
	FieldTypeNull
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeString:
		return "string"
	case FieldTypeNumber:
		return "number"
	case FieldTypeBoolean:
		return "boolean"
	case FieldTypeArray:
		return "array"
	case FieldTypeObject:
		return "object"
	case FieldTypeNull:
		return "null"
	default:
		return "unknown"
	}
}

// Matches reports whether a value already has this declared type, before
// any coercion is considered.
func (t FieldType) Matches(v engine.Value) bool {
	switch t {
	case FieldTypeString:
		return v.Kind() == engine.KindString
	case FieldTypeNumber:
		return v.Kind() == engine.KindNumber
	case FieldTypeBoolean:
		return v.Kind() == engine.KindBool
	case FieldTypeArray:
		return v.Kind() == engine.KindArray
	case FieldTypeObject:
		return v.Kind() == engine.KindObject
	case FieldTypeNull:
		return v.Kind() == engine.KindNull
	default:
		return false
	}
}

// StringConstraint bounds string fields. Length bounds are inclusive and
// counted in bytes. The pattern is matched partially unless FullMatch is
// set, in which case it must cover the whole string.
type StringConstraint struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	FullMatch bool

	compiled *regexp.Regexp
}

// SetPattern compiles and installs the regular expression. A bad pattern
// is a schema-authoring error, reported immediately.
func (c *StringConstraint) SetPattern(expr string) error {
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	c.Pattern = expr
	c.compiled = re
	return nil
}

func (c *StringConstraint) patternMatches(s string) bool {
	if c.compiled == nil {
		return true
	}
	if c.FullMatch {
		loc := c.compiled.FindStringIndex(s)
		return loc != nil && loc[0] == 0 && loc[1] == len(s)
	}
	return c.compiled.MatchString(s)
}

// NumericConstraint bounds number fields. Minimum and Maximum are
// inclusive.
type NumericConstraint struct {
	Minimum      *float64
	Maximum      *float64
	IntegerOnly  bool
	PositiveOnly bool
	MultipleOf   *float64
}

// ArrayConstraint bounds array fields. Items, when set, is applied to
// every element.
type ArrayConstraint struct {
	MinItems    *int
	MaxItems    *int
	UniqueItems bool
	Items       *FieldConstraint
}

// ObjectConstraint describes a nested object. AdditionalAllowed is
// honored independently of the schema-level strict mode: a nested object
// may admit undeclared properties inside a strict schema and vice versa.
type ObjectConstraint struct {
	AdditionalAllowed bool

	propOrder []string
	props     map[string]*FieldConstraint
}

func NewObjectConstraint(additionalAllowed bool) *ObjectConstraint {
	return &ObjectConstraint{
		AdditionalAllowed: additionalAllowed,
		props:             make(map[string]*FieldConstraint),
	}
}

func (c *ObjectConstraint) AddProperty(fc *FieldConstraint) *ObjectConstraint {
	if _, exists := c.props[fc.Name]; !exists {
		c.propOrder = append(c.propOrder, fc.Name)
	}
	c.props[fc.Name] = fc
	return c
}

func (c *ObjectConstraint) Property(name string) (*FieldConstraint, bool) {
	fc, ok := c.props[name]
	return fc, ok
}

// Properties returns the nested constraints in declaration order.
func (c *ObjectConstraint) Properties() []*FieldConstraint {
	out := make([]*FieldConstraint, 0, len(c.propOrder))
	for _, name := range c.propOrder {
		out = append(out, c.props[name])
	}
	return out
}

// FieldConstraint is the declarative rule set for one field. Nested
// object and array constraints form a tree; that tree must be acyclic
// (schemas are authored, never derived from data).
type FieldConstraint struct {
	Name     string
	Type     FieldType
	Required bool

	String  *StringConstraint
	Numeric *NumericConstraint
	Array   *ArrayConstraint
	Object  *ObjectConstraint

	Format Format

	// Validators names custom validators from the ValidatorRegistry,
	// run after all declarative checks pass or accumulate.
	Validators []string
}

func NewField(name string, fieldType FieldType) *FieldConstraint {
	return &FieldConstraint{Name: name, Type: fieldType}
}

func StringField(name string) *FieldConstraint  { return NewField(name, FieldTypeString) }
func NumberField(name string) *FieldConstraint  { return NewField(name, FieldTypeNumber) }
func BooleanField(name string) *FieldConstraint { return NewField(name, FieldTypeBoolean) }
func ArrayField(name string) *FieldConstraint   { return NewField(name, FieldTypeArray) }
func ObjectField(name string) *FieldConstraint  { return NewField(name, FieldTypeObject) }

func (f *FieldConstraint) Require() *FieldConstraint {
	f.Required = true
	return f
}

func (f *FieldConstraint) WithFormat(format Format) *FieldConstraint {
	f.Format = format
	return f
}

func (f *FieldConstraint) WithString(c *StringConstraint) *FieldConstraint {
	f.String = c
	return f
}

func (f *FieldConstraint) WithNumeric(c *NumericConstraint) *FieldConstraint {
	f.Numeric = c
	return f
}

func (f *FieldConstraint) WithArray(c *ArrayConstraint) *FieldConstraint {
	f.Array = c
	return f
}

func (f *FieldConstraint) WithObject(c *ObjectConstraint) *FieldConstraint {
	f.Object = c
	return f
}

func (f *FieldConstraint) WithValidators(names ...string) *FieldConstraint {
	f.Validators = append(f.Validators, names...)
	return f
}

// MinMax sets inclusive numeric bounds.
func (f *FieldConstraint) MinMax(min, max float64) *FieldConstraint {
	if f.Numeric == nil {
		f.Numeric = &NumericConstraint{}
	}
	f.Numeric.Minimum = &min
	f.Numeric.Maximum = &max
	return f
}

// ValidationConfig controls how the validation engine walks a value.
type ValidationConfig struct {
	// StrictMode rejects top-level fields not declared in the schema.
	StrictMode bool
	// FailFast stops at the first violation instead of accumulating all.
	FailFast bool
	// ValidateFormats enables the format predicates on string fields.
	ValidateFormats bool
	// AllowTypeCoercion accepts coercible values (e.g. numeric strings
	// for number fields) without a type error. Stored data is never
	// rewritten; coercion exists for validation only.
	AllowTypeCoercion bool
	// MaxDepth bounds recursion through nested objects and array items.
	MaxDepth int
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		ValidateFormats: true,
		MaxDepth:        50,
	}
}

// Schema is a named, versioned aggregate of field constraints plus the
// validation configuration for its collection. Field declaration order is
// preserved so violation output is deterministic.
type Schema struct {
	Name    string
	Version string
	Config  ValidationConfig

	fieldOrder []string
	fields     map[string]*FieldConstraint
}

func NewSchema(name string) *Schema {
	return &Schema{
		Name:    name,
		Version: "1.0.0",
		Config:  DefaultValidationConfig(),
		fields:  make(map[string]*FieldConstraint),
	}
}

func (s *Schema) WithVersion(version string) *Schema {
	s.Version = version
	return s
}

func (s *Schema) WithConfig(cfg ValidationConfig) *Schema {
	s.Config = cfg
	return s
}

// AddField declares a field. Redeclaring a name is a schema-authoring
// error.
func (s *Schema) AddField(fc *FieldConstraint) error {
	if fc == nil || fc.Name == "" {
		return fmt.Errorf("field constraint must have a name")
	}
	if _, exists := s.fields[fc.Name]; exists {
		return fmt.Errorf("field %q already declared in schema %q", fc.Name, s.Name)
	}
	s.fieldOrder = append(s.fieldOrder, fc.Name)
	s.fields[fc.Name] = fc
	return nil
}

// Field declares a field and returns the schema for chaining; it panics
// on a duplicate name. Schemas are authored in code, so a duplicate is a
// programming error, not input.
func (s *Schema) Field(fc *FieldConstraint) *Schema {
	if err := s.AddField(fc); err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) FieldByName(name string) (*FieldConstraint, bool) {
	fc, ok := s.fields[name]
	return fc, ok
}

// Fields returns the constraints in declaration order.
func (s *Schema) Fields() []*FieldConstraint {
	out := make([]*FieldConstraint, 0, len(s.fieldOrder))
	for _, name := range s.fieldOrder {
		out = append(out, s.fields[name])
	}
	return out
}

func (s *Schema) FieldCount() int {
	return len(s.fields)
}
