package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestSchema() *ConversionSchema {
	return &ConversionSchema{
		SourceEntity: "crm.contact",
		FieldMappings: []FieldMapping{
			{TargetField: "email", Kind: MappingDirect, SourceField: "properties.email"},
		},
		OutputShardTypes: OutputShardTypes{Primary: "contact"},
	}
}

func TestConversionSchema_Validate_Valid(t *testing.T) {
	assert.NoError(t, validTestSchema().Validate())
}

func TestConversionSchema_Validate_MissingSourceEntity(t *testing.T) {
	schema := validTestSchema()
	schema.SourceEntity = ""

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_entity is required")
}

func TestConversionSchema_Validate_NoMappings(t *testing.T) {
	schema := validTestSchema()
	schema.FieldMappings = nil

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one field mapping is required")
}

func TestConversionSchema_Validate_DuplicateTargetFields(t *testing.T) {
	schema := validTestSchema()
	schema.FieldMappings = append(schema.FieldMappings,
		FieldMapping{TargetField: "email", Kind: MappingDirect, SourceField: "other"})

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email: duplicate target field")
}

func TestConversionSchema_Validate_KindSpecificSubFields(t *testing.T) {
	tests := []struct {
		name    string
		mapping FieldMapping
		wantErr string
	}{
		{
			"direct without source field",
			FieldMapping{TargetField: "x", Kind: MappingDirect},
			"source_field is required",
		},
		{
			"lookup without source field",
			FieldMapping{TargetField: "x", Kind: MappingLookup},
			"source_field is required",
		},
		{
			"transform without chain",
			FieldMapping{TargetField: "x", Kind: MappingTransform, SourceField: "a"},
			"at least one transformation",
		},
		{
			"conditional without conditions",
			FieldMapping{TargetField: "x", Kind: MappingConditional},
			"at least one condition",
		},
		{
			"composite without source fields",
			FieldMapping{TargetField: "x", Kind: MappingComposite},
			"at least one source field",
		},
		{
			"flatten without path",
			FieldMapping{TargetField: "x", Kind: MappingFlatten, SourceField: "a"},
			"both source_field and path",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schema := validTestSchema()
			schema.FieldMappings = []FieldMapping{tc.mapping}

			err := schema.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConversionSchema_Validate_UnknownKinds(t *testing.T) {
	tests := []struct {
		name    string
		mapping FieldMapping
		wantErr string
	}{
		{
			"unknown mapping kind",
			FieldMapping{TargetField: "x", Kind: "teleport"},
			`unknown mapping kind "teleport"`,
		},
		{
			"unknown transformation kind",
			FieldMapping{TargetField: "x", Kind: MappingTransform, SourceField: "a",
				Transformations: []Transformation{{Kind: "frobnicate"}}},
			`unknown transformation kind "frobnicate"`,
		},
		{
			"unknown condition operator",
			FieldMapping{TargetField: "x", Kind: MappingConditional,
				Conditions: []ConditionalRule{{Condition: Condition{Field: "a", Operator: "sounds_like"}}}},
			`unknown condition operator "sounds_like"`,
		},
		{
			"unknown transformation in conditional outcome",
			FieldMapping{TargetField: "x", Kind: MappingConditional,
				Conditions: []ConditionalRule{{
					Condition: Condition{Field: "a", Operator: ConditionExists},
					Then:      ConditionOutcome{Field: "a", Transformations: []Transformation{{Kind: "frobnicate"}}},
				}}},
			`unknown transformation kind "frobnicate"`,
		},
		{
			"unknown validation kind",
			FieldMapping{TargetField: "x", Kind: MappingDirect, SourceField: "a",
				Validation: []ValidationRule{{Kind: "checksum"}}},
			`unknown validation kind "checksum"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			schema := validTestSchema()
			schema.FieldMappings = []FieldMapping{tc.mapping}

			err := schema.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConversionSchema_Validate_AggregatesViolations(t *testing.T) {
	schema := &ConversionSchema{
		FieldMappings: []FieldMapping{
			{TargetField: "x", Kind: "teleport"},
			{TargetField: "y", Kind: MappingDirect},
		},
	}

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source_entity is required")
	assert.Contains(t, err.Error(), "unknown mapping kind")
	assert.Contains(t, err.Error(), "source_field is required")
}

func TestConversionSchema_Validate_DerivedDescriptors(t *testing.T) {
	schema := validTestSchema()
	schema.OutputShardTypes.Derived = []DerivedDescriptor{{}}

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "derived[0]: shard_type_id is required")
	assert.Contains(t, err.Error(), "derived[0]: at least one extraction field is required")
}

func TestConversionSchema_Validate_RelationshipDeclarations(t *testing.T) {
	schema := validTestSchema()
	schema.Relationships = []RelationshipDeclaration{{TargetShardTypeID: "company"}}

	err := schema.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relationships[0]")
}
