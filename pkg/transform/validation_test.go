package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name    string
		rules   []models.ValidationRule
		value   any
		wantErr string
	}{
		{"required passes", []models.ValidationRule{{Kind: models.ValidationRequired}}, "x", ""},
		{"required fails on nil", []models.ValidationRule{{Kind: models.ValidationRequired}}, nil, "value is required"},
		{"required fails on empty string", []models.ValidationRule{{Kind: models.ValidationRequired}}, "", "value is required"},

		{"min passes", []models.ValidationRule{{Kind: models.ValidationMin, Value: 0}}, 5, ""},
		{"min fails", []models.ValidationRule{{Kind: models.ValidationMin, Value: 0}}, -1, "must be a number of at least 0"},
		{"min fails on non-number", []models.ValidationRule{{Kind: models.ValidationMin, Value: 0}}, "abc", "must be a number of at least 0"},
		{"max passes", []models.ValidationRule{{Kind: models.ValidationMax, Value: 10}}, 10, ""},
		{"max fails", []models.ValidationRule{{Kind: models.ValidationMax, Value: 10}}, 11, "must be a number of at most 10"},

		{"minLength passes", []models.ValidationRule{{Kind: models.ValidationMinLength, Value: 3}}, "abc", ""},
		{"minLength fails", []models.ValidationRule{{Kind: models.ValidationMinLength, Value: 3}}, "ab", "must be at least 3 characters"},
		{"maxLength fails", []models.ValidationRule{{Kind: models.ValidationMaxLength, Value: 3}}, "abcd", "must be at most 3 characters"},

		{"pattern passes", []models.ValidationRule{{Kind: models.ValidationPattern, Value: `^\d+$`}}, "123", ""},
		{"pattern fails", []models.ValidationRule{{Kind: models.ValidationPattern, Value: `^\d+$`}}, "12a", "must match pattern ^\\d+$"},
		{"pattern invalid regex fails", []models.ValidationRule{{Kind: models.ValidationPattern, Value: "["}}, "x", "must match pattern ["},

		{"enum passes", []models.ValidationRule{{Kind: models.ValidationEnum, Value: []any{"a", "b"}}}, "a", ""},
		{"enum fails", []models.ValidationRule{{Kind: models.ValidationEnum, Value: []any{"a", "b"}}}, "c", "must be one of [a b]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateValue(tc.rules, tc.value)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tc.wantErr, err.Error())
			}
		})
	}
}

func TestValidateValue_FirstFailureWins(t *testing.T) {
	rules := []models.ValidationRule{
		{Kind: models.ValidationMinLength, Value: 5, Message: "too short"},
		{Kind: models.ValidationPattern, Value: `^\d+$`, Message: "not numeric"},
	}

	err := validateValue(rules, "ab")
	require.Error(t, err)
	assert.Equal(t, "too short", err.Error())
}

func TestValidateValue_ConfiguredMessageOverridesDefault(t *testing.T) {
	rules := []models.ValidationRule{
		{Kind: models.ValidationRequired, Message: "email is mandatory"},
	}

	err := validateValue(rules, nil)
	require.Error(t, err)
	assert.Equal(t, "email is mandatory", err.Error())
}
