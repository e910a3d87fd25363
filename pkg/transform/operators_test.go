package transform

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

func TestApplyStringOp(t *testing.T) {
	tests := []struct {
		name     string
		op       models.Transformation
		value    any
		expected any
	}{
		{"uppercase", models.Transformation{Kind: models.TransformUppercase}, "ada", "ADA"},
		{"lowercase", models.Transformation{Kind: models.TransformLowercase}, "ADA", "ada"},
		{"trim", models.Transformation{Kind: models.TransformTrim}, "  ada  ", "ada"},
		{"truncate", models.Transformation{Kind: models.TransformTruncate, Length: 3}, "lovelace", "lov"},
		{"truncate shorter than length", models.Transformation{Kind: models.TransformTruncate, Length: 20}, "ada", "ada"},
		{"truncate multibyte", models.Transformation{Kind: models.TransformTruncate, Length: 2}, "日本語", "日本"},
		{"replace", models.Transformation{Kind: models.TransformReplace, Pattern: "-", Replacement: "_"}, "a-b-c", "a_b_c"},
		{"regex_replace", models.Transformation{Kind: models.TransformRegexReplace, Pattern: `\d+`, Replacement: "#"}, "room 42", "room #"},
		{"regex_replace invalid pattern", models.Transformation{Kind: models.TransformRegexReplace, Pattern: "[", Replacement: "#"}, "room 42", "room 42"},
		{"split", models.Transformation{Kind: models.TransformSplit, Delimiter: "-", Index: 1}, "a-b-c", "b"},
		{"split default delimiter", models.Transformation{Kind: models.TransformSplit, Index: 0}, "a,b", "a"},
		{"split index out of bounds", models.Transformation{Kind: models.TransformSplit, Delimiter: "-", Index: 9}, "a-b", nil},
		{"concat", models.Transformation{Kind: models.TransformConcat, Prefix: "<", Suffix: ">"}, "ada", "<ada>"},
		{"uppercase coerces number", models.Transformation{Kind: models.TransformUppercase}, 42, "42"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, applyStringOp(tc.op, tc.value))
		})
	}
}

func TestApplyStringOp_TruncateCapsConfiguredLength(t *testing.T) {
	long := strings.Repeat("x", maxTruncateLength+500)
	out := applyStringOp(models.Transformation{Kind: models.TransformTruncate, Length: maxTruncateLength + 100}, long)
	assert.Len(t, out, maxTruncateLength)
}

func TestApplyNumericOp(t *testing.T) {
	tests := []struct {
		name     string
		op       models.Transformation
		value    any
		expected any
	}{
		{"round", models.Transformation{Kind: models.TransformRound, Precision: 2}, 3.14159, 3.14},
		{"round zero precision", models.Transformation{Kind: models.TransformRound}, 2.7, 3.0},
		{"floor", models.Transformation{Kind: models.TransformFloor}, 2.9, 2.0},
		{"ceil", models.Transformation{Kind: models.TransformCeil}, 2.1, 3.0},
		{"multiply", models.Transformation{Kind: models.TransformMultiply, Operand: 3}, 4, 12.0},
		{"divide", models.Transformation{Kind: models.TransformDivide, Operand: 4}, 10, 2.5},
		{"add", models.Transformation{Kind: models.TransformAdd, Operand: 5}, 10, 15.0},
		{"subtract", models.Transformation{Kind: models.TransformSubtract, Operand: 5}, 10, 5.0},
		{"abs", models.Transformation{Kind: models.TransformAbs}, -7, 7.0},
		{"string input coerces", models.Transformation{Kind: models.TransformAdd, Operand: 1}, " 41 ", 42.0},

		// Degradation cases: the original value survives untouched.
		{"divide by zero", models.Transformation{Kind: models.TransformDivide, Operand: 0}, 10, 10},
		{"non-numeric input", models.Transformation{Kind: models.TransformMultiply, Operand: 2}, "not a number", "not a number"},
		{"nan operand", models.Transformation{Kind: models.TransformDivide, Operand: math.NaN()}, 10, 10},
		{"overflow to inf", models.Transformation{Kind: models.TransformMultiply, Operand: math.MaxFloat64}, math.MaxFloat64, math.MaxFloat64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, applyNumericOp(tc.op, tc.value))
		})
	}
}

func TestParseDateValue(t *testing.T) {
	t.Run("rfc3339 string", func(t *testing.T) {
		parsed, ok := parseDateValue("2024-06-15T10:30:00Z")
		assert.True(t, ok)
		assert.Equal(t, 2024, parsed.Year())
	})

	t.Run("date only string", func(t *testing.T) {
		parsed, ok := parseDateValue("2024-06-15")
		assert.True(t, ok)
		assert.Equal(t, time.June, parsed.Month())
	})

	t.Run("epoch seconds", func(t *testing.T) {
		parsed, ok := parseDateValue(1718445000)
		assert.True(t, ok)
		assert.Equal(t, 2024, parsed.Year())
	})

	t.Run("epoch milliseconds", func(t *testing.T) {
		parsed, ok := parseDateValue(1718445000000)
		assert.True(t, ok)
		assert.Equal(t, 2024, parsed.Year())
	})

	t.Run("time value passes through", func(t *testing.T) {
		now := time.Now()
		parsed, ok := parseDateValue(now)
		assert.True(t, ok)
		assert.Equal(t, now, parsed)
	})

	t.Run("garbage string", func(t *testing.T) {
		_, ok := parseDateValue("not a date")
		assert.False(t, ok)
	})
}

func TestApplyDateOp_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		op       models.Transformation
		value    any
		expected any
	}{
		{"parse_date invalid keeps original", models.Transformation{Kind: models.TransformParseDate}, "garbage", "garbage"},
		{"add_days invalid keeps original", models.Transformation{Kind: models.TransformAddDays, Days: 3}, "garbage", "garbage"},
		{"subtract_days invalid keeps original", models.Transformation{Kind: models.TransformSubtractDays, Days: 3}, "garbage", "garbage"},
		{"format_date invalid stringifies", models.Transformation{Kind: models.TransformFormatDate, Format: "2006-01-02"}, "garbage", "garbage"},
		{"to_iso_string invalid stringifies", models.Transformation{Kind: models.TransformToISOString}, "garbage", "garbage"},
		{"to_timestamp invalid is zero", models.Transformation{Kind: models.TransformToTimestamp}, "garbage", int64(0)},
		{"extract_year invalid is zero", models.Transformation{Kind: models.TransformExtractYear}, "garbage", 0},
		{"extract_month invalid is zero", models.Transformation{Kind: models.TransformExtractMonth}, "garbage", 0},
		{"extract_day invalid is zero", models.Transformation{Kind: models.TransformExtractDay}, "garbage", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, applyDateOp(tc.op, tc.value))
		})
	}
}

func TestApplyDateOp(t *testing.T) {
	t.Run("format_date", func(t *testing.T) {
		out := applyDateOp(models.Transformation{Kind: models.TransformFormatDate, Format: "2006-01-02"}, "2024-06-15T10:30:00Z")
		assert.Equal(t, "2024-06-15", out)
	})

	t.Run("add_days", func(t *testing.T) {
		out := applyDateOp(models.Transformation{Kind: models.TransformAddDays, Days: 10}, "2024-06-15")
		parsed, ok := out.(time.Time)
		assert.True(t, ok)
		assert.Equal(t, 25, parsed.Day())
	})

	t.Run("to_timestamp is unix millis", func(t *testing.T) {
		out := applyDateOp(models.Transformation{Kind: models.TransformToTimestamp}, "1970-01-01T00:00:01Z")
		assert.Equal(t, int64(1000), out)
	})

	t.Run("to_iso_string normalizes to utc", func(t *testing.T) {
		out := applyDateOp(models.Transformation{Kind: models.TransformToISOString}, "2024-06-15T12:00:00+02:00")
		assert.Equal(t, "2024-06-15T10:00:00Z", out)
	})

	t.Run("extract components", func(t *testing.T) {
		assert.Equal(t, 2024, applyDateOp(models.Transformation{Kind: models.TransformExtractYear}, "2024-06-15"))
		assert.Equal(t, 6, applyDateOp(models.Transformation{Kind: models.TransformExtractMonth}, "2024-06-15"))
		assert.Equal(t, 15, applyDateOp(models.Transformation{Kind: models.TransformExtractDay}, "2024-06-15"))
	})
}

func TestApplyCoercionOp(t *testing.T) {
	tests := []struct {
		name     string
		op       models.Transformation
		value    any
		expected any
	}{
		{"to_string number", models.Transformation{Kind: models.TransformToString}, 42, "42"},
		{"to_string float drops trailing zero", models.Transformation{Kind: models.TransformToString}, 42.0, "42"},
		{"to_number", models.Transformation{Kind: models.TransformToNumber}, "3.5", 3.5},
		{"to_number unparseable keeps original", models.Transformation{Kind: models.TransformToNumber}, "abc", "abc"},
		{"to_boolean true string", models.Transformation{Kind: models.TransformToBoolean}, "Yes", true},
		{"to_boolean false string", models.Transformation{Kind: models.TransformToBoolean}, "nope", false},
		{"to_boolean nonzero number", models.Transformation{Kind: models.TransformToBoolean}, 2, true},
		{"to_boolean zero", models.Transformation{Kind: models.TransformToBoolean}, 0, false},
		{"to_array wraps scalar", models.Transformation{Kind: models.TransformToArray}, "a", []any{"a"}},
		{"to_array keeps array", models.Transformation{Kind: models.TransformToArray}, []any{"a", "b"}, []any{"a", "b"}},
		{"parse_json", models.Transformation{Kind: models.TransformParseJSON}, `{"a":1}`, map[string]any{"a": float64(1)}},
		{"parse_json invalid keeps original", models.Transformation{Kind: models.TransformParseJSON}, "{broken", "{broken"},
		{"parse_json non-string keeps original", models.Transformation{Kind: models.TransformParseJSON}, 42, 42},
		{"stringify_json", models.Transformation{Kind: models.TransformStringifyJSON}, map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, applyCoercionOp(tc.op, tc.value))
		})
	}
}

func TestApplyTransformation_NilPassesThroughNonCustomOps(t *testing.T) {
	engine := testEngine(t)
	out := engine.applyTransformation(nil, models.Transformation{Kind: models.TransformUppercase}, nil, Context{})
	assert.Nil(t, out)
}

func TestApplyTransformation_UnknownKindPassesThrough(t *testing.T) {
	engine := testEngine(t)
	out := engine.applyTransformation("ada", models.Transformation{Kind: "frobnicate"}, nil, Context{})
	assert.Equal(t, "ada", out)
}
