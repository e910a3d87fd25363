package transform

import (
	"go.uber.org/zap"

	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// applyTransformations runs an ordered operator chain left to right.
func (e *Engine) applyTransformations(value any, chain []models.Transformation, record map[string]any, tctx Context) any {
	for _, t := range chain {
		value = e.applyTransformation(value, t, record, tctx)
	}
	return value
}

// applyTransformation dispatches one operator. Operators never panic: every
// edge case degrades to a documented fallback value. A nil input passes
// through every operator except custom, whose expression may still want to
// observe the null.
func (e *Engine) applyTransformation(value any, t models.Transformation, record map[string]any, tctx Context) any {
	if t.Kind == models.TransformCustom {
		if e.exprs == nil {
			return nil
		}
		out, ok := e.exprs.Evaluate(t.Expression, value, record, tctx.Variables)
		if !ok {
			return nil
		}
		return out
	}

	if value == nil {
		return nil
	}

	switch t.Kind {
	case models.TransformUppercase, models.TransformLowercase, models.TransformTrim,
		models.TransformTruncate, models.TransformReplace, models.TransformRegexReplace,
		models.TransformSplit, models.TransformConcat:
		return applyStringOp(t, value)

	case models.TransformRound, models.TransformFloor, models.TransformCeil,
		models.TransformMultiply, models.TransformDivide, models.TransformAdd,
		models.TransformSubtract, models.TransformAbs:
		return applyNumericOp(t, value)

	case models.TransformParseDate, models.TransformFormatDate, models.TransformAddDays,
		models.TransformSubtractDays, models.TransformToTimestamp, models.TransformToISOString,
		models.TransformExtractYear, models.TransformExtractMonth, models.TransformExtractDay:
		return applyDateOp(t, value)

	case models.TransformToString, models.TransformToNumber, models.TransformToBoolean,
		models.TransformToArray, models.TransformToDate, models.TransformParseJSON,
		models.TransformStringifyJSON:
		return applyCoercionOp(t, value)

	default:
		// Unknown kinds are rejected at schema authoring time; reaching this
		// branch means a schema bypassed validation. Pass the value through.
		e.logger.Warn("unknown transformation kind, passing value through",
			zap.String("kind", t.Kind))
		return value
	}
}
