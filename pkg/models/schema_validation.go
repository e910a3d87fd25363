package models

import (
	"fmt"
	"strings"
)

var knownMappingKinds = map[string]bool{
	MappingDirect:      true,
	MappingTransform:   true,
	MappingConditional: true,
	MappingDefault:     true,
	MappingComposite:   true,
	MappingFlatten:     true,
	MappingLookup:      true,
}

var knownTransformKinds = map[string]bool{
	TransformUppercase: true, TransformLowercase: true, TransformTrim: true,
	TransformTruncate: true, TransformReplace: true, TransformRegexReplace: true,
	TransformSplit: true, TransformConcat: true,
	TransformRound: true, TransformFloor: true, TransformCeil: true,
	TransformMultiply: true, TransformDivide: true, TransformAdd: true,
	TransformSubtract: true, TransformAbs: true,
	TransformParseDate: true, TransformFormatDate: true, TransformAddDays: true,
	TransformSubtractDays: true, TransformToTimestamp: true, TransformToISOString: true,
	TransformExtractYear: true, TransformExtractMonth: true, TransformExtractDay: true,
	TransformToString: true, TransformToNumber: true, TransformToBoolean: true,
	TransformToArray: true, TransformToDate: true, TransformParseJSON: true,
	TransformStringifyJSON: true,
	TransformCustom:        true,
}

var knownConditionOperators = map[string]bool{
	ConditionEq: true, ConditionNeq: true, ConditionGt: true, ConditionGte: true,
	ConditionLt: true, ConditionLte: true, ConditionContains: true,
	ConditionStartsWith: true, ConditionEndsWith: true, ConditionIn: true,
	ConditionNotIn: true, ConditionExists: true, ConditionNotExists: true,
	ConditionIsNull: true, ConditionIsNotNull: true, ConditionRegex: true,
}

var knownValidationKinds = map[string]bool{
	ValidationRequired: true, ValidationMin: true, ValidationMax: true,
	ValidationMinLength: true, ValidationMaxLength: true,
	ValidationPattern: true, ValidationEnum: true,
}

// Validate checks a schema for authoring errors: duplicate target fields,
// missing kind-specific sub-fields, and unknown operator kinds. It returns
// every violation found, joined into one error, so authors can fix a schema
// in a single pass. A nil return means the schema is safe to persist.
func (s *ConversionSchema) Validate() error {
	var violations []string

	if s.SourceEntity == "" {
		violations = append(violations, "source_entity is required")
	}
	if len(s.FieldMappings) == 0 {
		violations = append(violations, "at least one field mapping is required")
	}

	seen := make(map[string]bool, len(s.FieldMappings))
	for i, m := range s.FieldMappings {
		label := m.TargetField
		if label == "" {
			label = fmt.Sprintf("mapping[%d]", i)
			violations = append(violations, fmt.Sprintf("%s: target_field is required", label))
		}
		if seen[m.TargetField] && m.TargetField != "" {
			violations = append(violations, fmt.Sprintf("%s: duplicate target field", label))
		}
		seen[m.TargetField] = true

		violations = append(violations, validateMapping(label, m)...)
	}

	for i, d := range s.OutputShardTypes.Derived {
		if d.ShardTypeID == "" {
			violations = append(violations, fmt.Sprintf("derived[%d]: shard_type_id is required", i))
		}
		if len(d.Fields) == 0 {
			violations = append(violations, fmt.Sprintf("derived[%d]: at least one extraction field is required", i))
		}
	}

	for i, r := range s.Relationships {
		if r.TargetExternalIDField == "" || r.TargetShardTypeID == "" || r.RelationshipType == "" {
			violations = append(violations, fmt.Sprintf("relationships[%d]: target_external_id_field, target_shard_type_id and relationship_type are all required", i))
		}
	}

	if len(violations) > 0 {
		return fmt.Errorf("invalid conversion schema: %s", strings.Join(violations, "; "))
	}
	return nil
}

func validateMapping(label string, m FieldMapping) []string {
	var violations []string

	if !knownMappingKinds[m.Kind] {
		violations = append(violations, fmt.Sprintf("%s: unknown mapping kind %q", label, m.Kind))
		return violations
	}

	switch m.Kind {
	case MappingDirect, MappingLookup:
		if m.SourceField == "" {
			violations = append(violations, fmt.Sprintf("%s: source_field is required for %s mappings", label, m.Kind))
		}
	case MappingTransform:
		if m.SourceField == "" {
			violations = append(violations, fmt.Sprintf("%s: source_field is required for transform mappings", label))
		}
		if len(m.Transformations) == 0 {
			violations = append(violations, fmt.Sprintf("%s: transform mappings need at least one transformation", label))
		}
	case MappingConditional:
		if len(m.Conditions) == 0 {
			violations = append(violations, fmt.Sprintf("%s: conditional mappings need at least one condition", label))
		}
	case MappingComposite:
		if len(m.SourceFields) == 0 {
			violations = append(violations, fmt.Sprintf("%s: composite mappings need at least one source field", label))
		}
	case MappingFlatten:
		if m.SourceField == "" || m.Path == "" {
			violations = append(violations, fmt.Sprintf("%s: flatten mappings need both source_field and path", label))
		}
	}

	for _, t := range m.Transformations {
		if !knownTransformKinds[t.Kind] {
			violations = append(violations, fmt.Sprintf("%s: unknown transformation kind %q", label, t.Kind))
		}
	}
	for _, c := range m.Conditions {
		if !knownConditionOperators[c.Condition.Operator] {
			violations = append(violations, fmt.Sprintf("%s: unknown condition operator %q", label, c.Condition.Operator))
		}
		for _, t := range c.Then.Transformations {
			if !knownTransformKinds[t.Kind] {
				violations = append(violations, fmt.Sprintf("%s: unknown transformation kind %q", label, t.Kind))
			}
		}
	}
	for _, v := range m.Validation {
		if !knownValidationKinds[v.Kind] {
			violations = append(violations, fmt.Sprintf("%s: unknown validation kind %q", label, v.Kind))
		}
	}

	return violations
}
