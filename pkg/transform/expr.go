package transform

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"go.uber.org/zap"
)

// DefaultMaxExpressionLength caps custom expressions; anything longer is
// rejected before compilation.
const DefaultMaxExpressionLength = 1024

// denyTokens are screened case-insensitively before compilation. CEL has no
// way to construct or invoke host code, so the grammar itself is the real
// sandbox; the screen rejects expressions pasted in from embedded-JS
// engines before they produce confusing compile errors.
var denyTokens = []string{
	"require(",
	"import(",
	"eval(",
	"function(",
	"constructor",
	"__proto__",
	"prototype",
	"process.",
	"child_process",
	"globalthis",
	"global.",
	"window.",
	"document.",
	"settimeout",
	"setinterval",
	"fetch(",
	"xmlhttprequest",
	"new ",
}

// ExpressionEvaluator compiles and runs restricted custom expressions.
// Expressions see three variables: value (the field value entering the
// operator), record (the whole source record) and vars (caller-supplied
// transformation context). Compiled programs are cached per expression.
type ExpressionEvaluator struct {
	env    *cel.Env
	maxLen int
	logger *zap.Logger

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewExpressionEvaluator builds an evaluator with the given expression
// length cap; maxLen <= 0 selects DefaultMaxExpressionLength.
func NewExpressionEvaluator(logger *zap.Logger, maxLen int) (*ExpressionEvaluator, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxExpressionLength
	}

	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("value", decls.Dyn),
			decls.NewVar("record", decls.Dyn),
			decls.NewVar("vars", decls.Dyn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}

	return &ExpressionEvaluator{
		env:      env,
		maxLen:   maxLen,
		logger:   logger.Named("expr"),
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate screens, compiles and runs an expression. The boolean result is
// false when the expression was rejected or failed to evaluate; the owning
// field then resolves to undefined rather than surfacing an error.
func (ev *ExpressionEvaluator) Evaluate(expression string, value any, record map[string]any, vars map[string]any) (any, bool) {
	if !ev.screen(expression) {
		return nil, false
	}

	program, err := ev.program(expression)
	if err != nil {
		ev.logger.Debug("expression failed to compile", zap.Error(err))
		return nil, false
	}

	if vars == nil {
		vars = map[string]any{}
	}
	out, _, err := program.Eval(map[string]any{
		"value":  value,
		"record": record,
		"vars":   vars,
	})
	if err != nil {
		ev.logger.Debug("expression failed to evaluate", zap.Error(err))
		return nil, false
	}
	return out.Value(), true
}

// screen rejects over-length expressions and anything matching the deny
// list. Rejection is silent apart from a warning log.
func (ev *ExpressionEvaluator) screen(expression string) bool {
	if expression == "" || len(expression) > ev.maxLen {
		ev.logger.Warn("rejected custom expression: empty or over length cap",
			zap.Int("length", len(expression)),
			zap.Int("max", ev.maxLen))
		return false
	}

	lowered := strings.ToLower(expression)
	for _, token := range denyTokens {
		if strings.Contains(lowered, token) {
			ev.logger.Warn("rejected custom expression: matched deny list",
				zap.String("token", token))
			return false
		}
	}
	return true
}

// program returns the cached compiled program for an expression, compiling
// and caching on first use.
func (ev *ExpressionEvaluator) program(expression string) (cel.Program, error) {
	ev.mu.RLock()
	program, ok := ev.programs[expression]
	ev.mu.RUnlock()
	if ok {
		return program, nil
	}

	ast, issues := ev.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expression compilation error: %w", issues.Err())
	}
	program, err := ev.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create expression program: %w", err)
	}

	ev.mu.Lock()
	ev.programs[expression] = program
	ev.mu.Unlock()
	return program, nil
}
