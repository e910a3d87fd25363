package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEvaluator(t *testing.T) *ExpressionEvaluator {
	t.Helper()
	ev, err := NewExpressionEvaluator(zap.NewNop(), 0)
	require.NoError(t, err)
	return ev
}

func TestExpressionEvaluator_Arithmetic(t *testing.T) {
	ev := testEvaluator(t)

	out, ok := ev.Evaluate("value * 2.0", 21.0, nil, nil)
	require.True(t, ok)
	assert.Equal(t, float64(42), out)
}

func TestExpressionEvaluator_RecordAccess(t *testing.T) {
	ev := testEvaluator(t)
	record := map[string]any{"first": "Ada", "last": "Lovelace"}

	out, ok := ev.Evaluate(`record.first + " " + record.last`, nil, record, nil)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", out)
}

func TestExpressionEvaluator_Vars(t *testing.T) {
	ev := testEvaluator(t)

	out, ok := ev.Evaluate(`vars.prefix + "-" + value`, "123", nil, map[string]any{"prefix": "ord"})
	require.True(t, ok)
	assert.Equal(t, "ord-123", out)
}

func TestExpressionEvaluator_Conditional(t *testing.T) {
	ev := testEvaluator(t)

	out, ok := ev.Evaluate(`value > 100.0 ? "high" : "low"`, 250.0, nil, nil)
	require.True(t, ok)
	assert.Equal(t, "high", out)
}

func TestExpressionEvaluator_RejectsDenyListTokens(t *testing.T) {
	ev := testEvaluator(t)

	for _, expr := range []string{
		`require("child_process")`,
		`eval("1+1")`,
		`process.exit(1)`,
		`record.constructor`,
		`new Function()`,
		`REQUIRE("fs")`, // screening is case-insensitive
	} {
		_, ok := ev.Evaluate(expr, nil, nil, nil)
		assert.False(t, ok, "expression should be rejected: %s", expr)
	}
}

func TestExpressionEvaluator_RejectsOverLengthExpression(t *testing.T) {
	ev, err := NewExpressionEvaluator(zap.NewNop(), 32)
	require.NoError(t, err)

	_, ok := ev.Evaluate(strings.Repeat("1+", 40)+"1", nil, nil, nil)
	assert.False(t, ok)
}

func TestExpressionEvaluator_RejectsEmptyExpression(t *testing.T) {
	ev := testEvaluator(t)
	_, ok := ev.Evaluate("", nil, nil, nil)
	assert.False(t, ok)
}

func TestExpressionEvaluator_CompileErrorIsUndefined(t *testing.T) {
	ev := testEvaluator(t)
	_, ok := ev.Evaluate("value +", nil, nil, nil)
	assert.False(t, ok)
}

func TestExpressionEvaluator_CachesPrograms(t *testing.T) {
	ev := testEvaluator(t)

	_, ok := ev.Evaluate("value + 1", int64(1), nil, nil)
	require.True(t, ok)
	_, ok = ev.Evaluate("value + 1", int64(2), nil, nil)
	require.True(t, ok)

	ev.mu.RLock()
	defer ev.mu.RUnlock()
	assert.Len(t, ev.programs, 1)
}
