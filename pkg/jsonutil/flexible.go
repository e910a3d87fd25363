// Package jsonutil contains helpers for coping with loosely typed values
// coming out of JSON documents.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleString converts an arbitrary decoded JSON value to a string.
// Integration records routinely carry numbers or booleans where the schema
// expects a string id or name; numbers are rendered without a trailing
// ".0". Returns empty string for nil.
func FlexibleString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return FlexibleString(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FlexibleStringValue converts a json.RawMessage to a string, handling
// cases where a document stores numbers or booleans in string positions.
// Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var anyVal any
	if err := json.Unmarshal(raw, &anyVal); err == nil {
		return FlexibleString(anyVal)
	}

	return string(raw)
}
