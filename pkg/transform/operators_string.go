package transform

import (
	"regexp"
	"strings"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// maxTruncateLength is the hard cap on truncate lengths, bounding the
// memory one field value can occupy regardless of schema configuration.
const maxTruncateLength = 10000

func applyStringOp(t models.Transformation, value any) any {
	s := jsonutil.FlexibleString(value)

	switch t.Kind {
	case models.TransformUppercase:
		return strings.ToUpper(s)

	case models.TransformLowercase:
		return strings.ToLower(s)

	case models.TransformTrim:
		return strings.TrimSpace(s)

	case models.TransformTruncate:
		length := t.Length
		if length <= 0 || length > maxTruncateLength {
			length = maxTruncateLength
		}
		runes := []rune(s)
		if len(runes) <= length {
			return s
		}
		return string(runes[:length])

	case models.TransformReplace:
		return strings.ReplaceAll(s, t.Pattern, t.Replacement)

	case models.TransformRegexReplace:
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			// Invalid pattern degrades to the original value.
			return value
		}
		return re.ReplaceAllString(s, t.Replacement)

	case models.TransformSplit:
		delimiter := t.Delimiter
		if delimiter == "" {
			delimiter = ","
		}
		parts := strings.Split(s, delimiter)
		if t.Index < 0 || t.Index >= len(parts) {
			return nil
		}
		return parts[t.Index]

	case models.TransformConcat:
		return t.Prefix + s + t.Suffix
	}

	return value
}
