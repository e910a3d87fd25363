package models

import (
	"time"

	"github.com/google/uuid"
)

// Field mapping kinds. The set is closed: an unknown kind is rejected at
// authoring time, never dispatched at transform time.
const (
	MappingDirect      = "direct"      // Dotted-path copy from the source record
	MappingTransform   = "transform"   // Dotted-path read plus an ordered operator chain
	MappingConditional = "conditional" // First-match condition/outcome pairs
	MappingDefault     = "default"     // Static or templated default, no source read
	MappingComposite   = "composite"   // Join or template-format several source fields
	MappingFlatten     = "flatten"     // Two-segment path composed into one read
	MappingLookup      = "lookup"      // Reserved for dictionary resolution; currently a passthrough read
)

// ConversionSchema maps an external record shape onto one or more shard
// types. Tenant-scoped unless TenantID is nil, in which case the schema is
// a global template visible to every tenant.
// Stored in engine_conversion_schemas.
type ConversionSchema struct {
	ID               uuid.UUID                 `json:"id"`
	TenantID         *uuid.UUID                `json:"tenant_id,omitempty"` // nil for global schemas
	SourceEntity     string                    `json:"source_entity"`       // Source shape identifier (e.g. "hubspot.contact")
	FieldMappings    []FieldMapping            `json:"field_mappings"`
	Relationships    []RelationshipDeclaration `json:"relationships,omitempty"`
	OutputShardTypes OutputShardTypes          `json:"output_shard_types"`
	ExternalIDField  string                    `json:"external_id_field,omitempty"` // Dotted path to the record's external id
	NameField        string                    `json:"name_field,omitempty"`        // Dotted path to the record's display name
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// OutputShardTypes names the primary shard type a schema produces plus any
// derived (secondary) shard descriptors.
type OutputShardTypes struct {
	Primary string              `json:"primary"`
	Derived []DerivedDescriptor `json:"derived,omitempty"`
}

// FieldMapping computes one target field of the output. Exactly one mapping
// kind applies; the kind decides which of the optional fields are read.
type FieldMapping struct {
	TargetField string `json:"target_field"` // Dotted path into the output document
	Kind        string `json:"kind"`
	Required    bool   `json:"required,omitempty"`

	// direct, transform, flatten, lookup
	SourceField string `json:"source_field,omitempty"`
	// flatten: second path segment appended to SourceField
	Path string `json:"path,omitempty"`

	// transform, and conditional outcomes that copy a field
	Transformations []Transformation `json:"transformations,omitempty"`

	// conditional
	Conditions []ConditionalRule `json:"conditions,omitempty"`

	// composite
	SourceFields []string `json:"source_fields,omitempty"`
	Separator    string   `json:"separator,omitempty"`
	Template     string   `json:"template,omitempty"` // ${field} tokens substituted from the record

	// default, and the fall-through of conditional. String defaults may carry
	// {{task.KEY}} tokens resolved against the caller's task configuration.
	Default any `json:"default,omitempty"`

	// Ordered validation rules applied after value resolution.
	Validation []ValidationRule `json:"validation,omitempty"`
}

// Transformation operator kinds, grouped by value domain.
const (
	// String operators
	TransformUppercase    = "uppercase"
	TransformLowercase    = "lowercase"
	TransformTrim         = "trim"
	TransformTruncate     = "truncate"
	TransformReplace      = "replace"
	TransformRegexReplace = "regex_replace"
	TransformSplit        = "split"
	TransformConcat       = "concat"

	// Numeric operators
	TransformRound    = "round"
	TransformFloor    = "floor"
	TransformCeil     = "ceil"
	TransformMultiply = "multiply"
	TransformDivide   = "divide"
	TransformAdd      = "add"
	TransformSubtract = "subtract"
	TransformAbs      = "abs"

	// Date operators
	TransformParseDate    = "parse_date"
	TransformFormatDate   = "format_date"
	TransformAddDays      = "add_days"
	TransformSubtractDays = "subtract_days"
	TransformToTimestamp  = "to_timestamp"
	TransformToISOString  = "to_iso_string"
	TransformExtractYear  = "extract_year"
	TransformExtractMonth = "extract_month"
	TransformExtractDay   = "extract_day"

	// Type coercion operators
	TransformToString      = "to_string"
	TransformToNumber      = "to_number"
	TransformToBoolean     = "to_boolean"
	TransformToArray       = "to_array"
	TransformToDate        = "to_date"
	TransformParseJSON     = "parse_json"
	TransformStringifyJSON = "stringify_json"

	// Restricted expression evaluation
	TransformCustom = "custom"
)

// Transformation is one operator in a transform chain. Kind selects the
// operator; the remaining fields are operator-specific configuration.
// Operators are pure functions of (value, config, record).
type Transformation struct {
	Kind string `json:"kind"`

	// truncate
	Length int `json:"length,omitempty"`
	// replace, regex_replace
	Pattern     string `json:"pattern,omitempty"`
	Replacement string `json:"replacement,omitempty"`
	// split
	Delimiter string `json:"delimiter,omitempty"`
	Index     int    `json:"index,omitempty"`
	// concat
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
	// round
	Precision int `json:"precision,omitempty"`
	// multiply, divide, add, subtract
	Operand float64 `json:"operand,omitempty"`
	// format_date (Go reference layout), parse_date hint
	Format string `json:"format,omitempty"`
	// add_days, subtract_days
	Days int `json:"days,omitempty"`
	// custom
	Expression string `json:"expression,omitempty"`
}

// Condition operators for conditional mappings and validation.
const (
	ConditionEq         = "eq"
	ConditionNeq        = "neq"
	ConditionGt         = "gt"
	ConditionGte        = "gte"
	ConditionLt         = "lt"
	ConditionLte        = "lte"
	ConditionContains   = "contains"
	ConditionStartsWith = "starts_with"
	ConditionEndsWith   = "ends_with"
	ConditionIn         = "in"
	ConditionNotIn      = "not_in"
	ConditionExists     = "exists"
	ConditionNotExists  = "not_exists"
	ConditionIsNull     = "is_null"
	ConditionIsNotNull  = "is_not_null"
	ConditionRegex      = "regex"
)

// Condition tests one field of the source record.
type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// ConditionOutcome is what a matching conditional rule produces: a static
// value when Field is empty, otherwise a copy of Field optionally passed
// through a transformation chain.
type ConditionOutcome struct {
	Value           any              `json:"value,omitempty"`
	Field           string           `json:"field,omitempty"`
	Transformations []Transformation `json:"transformations,omitempty"`
}

// ConditionalRule pairs a condition with its outcome. Rules are evaluated
// in declared order; the first match wins.
type ConditionalRule struct {
	Condition Condition        `json:"condition"`
	Then      ConditionOutcome `json:"then"`
}

// Validation rule kinds. Rules run in declared order; the first failure
// short-circuits with its configured message.
const (
	ValidationRequired  = "required"
	ValidationMin       = "min"
	ValidationMax       = "max"
	ValidationMinLength = "minLength"
	ValidationMaxLength = "maxLength"
	ValidationPattern   = "pattern"
	ValidationEnum      = "enum"
)

// ValidationRule checks a resolved value before it is accepted into the
// output document.
type ValidationRule struct {
	Kind    string `json:"kind"`
	Value   any    `json:"value,omitempty"`   // Bound, pattern string, or enum list depending on Kind
	Message string `json:"message,omitempty"` // Failure message; a default is derived when empty
}

// DerivedDescriptor declares a secondary shard extracted from the same
// source record as the primary.
type DerivedDescriptor struct {
	ShardTypeID          string   `json:"shard_type_id"`
	Fields               []string `json:"fields"`                      // Dotted source paths to extract
	ExternalIDField      string   `json:"external_id_field,omitempty"` // Dotted path; deterministic id derived when empty
	NameField            string   `json:"name_field,omitempty"`
	LinkToPrimary        bool     `json:"link_to_primary,omitempty"`
	LinkRelationshipType string   `json:"link_relationship_type,omitempty"`
}

// RelationshipDeclaration declares a graph edge from the primary shard to
// another shard resolved per record by external id.
type RelationshipDeclaration struct {
	TargetExternalIDField string `json:"target_external_id_field"` // Dotted path into the source record
	TargetShardTypeID     string `json:"target_shard_type_id"`
	RelationshipType      string `json:"relationship_type"`
}
