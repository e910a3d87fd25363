package transform

import (
	"strings"
	"time"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// dateLayouts are tried in order when parsing string dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC1123,
	time.RFC822,
}

// epochMillisThreshold separates second-resolution epochs from
// millisecond-resolution ones. Anything above it is read as milliseconds.
const epochMillisThreshold = 1e12

// parseDateValue interprets a value as a point in time: time.Time values
// pass through, strings are tried against known layouts, and numbers are
// read as Unix epochs (seconds or milliseconds by magnitude).
func parseDateValue(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	if n, ok := toNumber(value); ok {
		if n >= epochMillisThreshold || n <= -epochMillisThreshold {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Unix(int64(n), 0).UTC(), true
	}
	return time.Time{}, false
}

// applyDateOp validates the parsed date first; on invalid input each
// operator returns its documented fallback (original value for
// parse/add/subtract, the stringified input for format/to_iso, zero for
// to_timestamp and the extract operators) rather than failing.
func applyDateOp(t models.Transformation, value any) any {
	parsed, ok := parseDateValue(value)

	switch t.Kind {
	case models.TransformParseDate:
		if !ok {
			return value
		}
		return parsed

	case models.TransformFormatDate:
		if !ok {
			return jsonutil.FlexibleString(value)
		}
		layout := t.Format
		if layout == "" {
			layout = time.RFC3339
		}
		return parsed.Format(layout)

	case models.TransformAddDays:
		if !ok {
			return value
		}
		return parsed.AddDate(0, 0, t.Days)

	case models.TransformSubtractDays:
		if !ok {
			return value
		}
		return parsed.AddDate(0, 0, -t.Days)

	case models.TransformToTimestamp:
		if !ok {
			return int64(0)
		}
		return parsed.UnixMilli()

	case models.TransformToISOString:
		if !ok {
			return jsonutil.FlexibleString(value)
		}
		return parsed.UTC().Format(time.RFC3339)

	case models.TransformExtractYear:
		if !ok {
			return 0
		}
		return parsed.Year()

	case models.TransformExtractMonth:
		if !ok {
			return 0
		}
		return int(parsed.Month())

	case models.TransformExtractDay:
		if !ok {
			return 0
		}
		return parsed.Day()
	}

	return value
}
