package transform

import (
	"regexp"
	"strings"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// evaluateCondition tests one condition against the source record. Unknown
// operators and invalid regex patterns evaluate to false rather than
// raising; a condition can only select or skip a branch, never fail a
// record on its own.
func evaluateCondition(cond models.Condition, record map[string]any) bool {
	value, found := lookupPath(record, cond.Field)

	switch cond.Operator {
	case models.ConditionExists:
		return found
	case models.ConditionNotExists:
		return !found
	case models.ConditionIsNull:
		return found && value == nil
	case models.ConditionIsNotNull:
		return found && value != nil

	case models.ConditionEq:
		return looseEqual(value, cond.Value)
	case models.ConditionNeq:
		return !looseEqual(value, cond.Value)

	case models.ConditionGt:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp > 0
	case models.ConditionGte:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp >= 0
	case models.ConditionLt:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp < 0
	case models.ConditionLte:
		cmp, ok := compareValues(value, cond.Value)
		return ok && cmp <= 0

	case models.ConditionContains:
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if looseEqual(item, cond.Value) {
					return true
				}
			}
			return false
		}
		return strings.Contains(jsonutil.FlexibleString(value), jsonutil.FlexibleString(cond.Value))

	case models.ConditionStartsWith:
		return strings.HasPrefix(jsonutil.FlexibleString(value), jsonutil.FlexibleString(cond.Value))
	case models.ConditionEndsWith:
		return strings.HasSuffix(jsonutil.FlexibleString(value), jsonutil.FlexibleString(cond.Value))

	case models.ConditionIn:
		return valueInList(value, cond.Value)
	case models.ConditionNotIn:
		return !valueInList(value, cond.Value)

	case models.ConditionRegex:
		re, err := regexp.Compile(jsonutil.FlexibleString(cond.Value))
		if err != nil {
			return false
		}
		return re.MatchString(jsonutil.FlexibleString(value))
	}

	return false
}

// looseEqual compares two values numerically when both coerce to numbers,
// otherwise by their string forms. Nil equals only nil.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		return an == bn
	}
	return jsonutil.FlexibleString(a) == jsonutil.FlexibleString(b)
}

// compareValues orders two values numerically when possible, falling back
// to lexicographic comparison of their string forms. Returns false when
// either side is nil.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if aok && bok {
		switch {
		case an < bn:
			return -1, true
		case an > bn:
			return 1, true
		default:
			return 0, true
		}
	}
	return strings.Compare(jsonutil.FlexibleString(a), jsonutil.FlexibleString(b)), true
}

func valueInList(value any, listValue any) bool {
	list, ok := listValue.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(value, item) {
			return true
		}
	}
	return false
}
