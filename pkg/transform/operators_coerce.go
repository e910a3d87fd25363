package transform

import (
	"encoding/json"
	"strings"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// truthyStrings are the string forms to_boolean accepts as true,
// case-insensitive.
var truthyStrings = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"on":   true,
}

func applyCoercionOp(t models.Transformation, value any) any {
	switch t.Kind {
	case models.TransformToString:
		return jsonutil.FlexibleString(value)

	case models.TransformToNumber:
		n, ok := toNumber(value)
		if !ok {
			return value
		}
		return n

	case models.TransformToBoolean:
		switch v := value.(type) {
		case bool:
			return v
		case string:
			return truthyStrings[strings.ToLower(strings.TrimSpace(v))]
		}
		if n, ok := toNumber(value); ok {
			return n != 0
		}
		return false

	case models.TransformToArray:
		if arr, ok := value.([]any); ok {
			return arr
		}
		return []any{value}

	case models.TransformToDate:
		parsed, ok := parseDateValue(value)
		if !ok {
			return value
		}
		return parsed

	case models.TransformParseJSON:
		s, ok := value.(string)
		if !ok {
			return value
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			// Invalid JSON degrades to the original string.
			return value
		}
		return decoded

	case models.TransformStringifyJSON:
		encoded, err := json.Marshal(value)
		if err != nil {
			return value
		}
		return string(encoded)
	}

	return value
}
