package transform

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// toNumber coerces a value to a finite float64. Strings are parsed after
// trimming whitespace. Returns false for anything non-numeric or non-finite.
func toNumber(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// applyNumericOp coerces the input to a number, applies the operator, and
// re-checks the output for finiteness. Any coercion failure, non-finite
// input, non-finite output, or zero/non-finite divisor returns the original
// value unchanged; no floating-point condition ever escapes as a panic.
func applyNumericOp(t models.Transformation, value any) any {
	n, ok := toNumber(value)
	if !ok {
		return value
	}

	var out float64
	switch t.Kind {
	case models.TransformRound:
		shift := math.Pow(10, float64(t.Precision))
		out = math.Round(n*shift) / shift
	case models.TransformFloor:
		out = math.Floor(n)
	case models.TransformCeil:
		out = math.Ceil(n)
	case models.TransformMultiply:
		out = n * t.Operand
	case models.TransformDivide:
		if t.Operand == 0 || math.IsNaN(t.Operand) || math.IsInf(t.Operand, 0) {
			return value
		}
		out = n / t.Operand
	case models.TransformAdd:
		out = n + t.Operand
	case models.TransformSubtract:
		out = n - t.Operand
	case models.TransformAbs:
		out = math.Abs(n)
	default:
		return value
	}

	if math.IsNaN(out) || math.IsInf(out, 0) {
		return value
	}
	return out
}
