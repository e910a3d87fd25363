// Package transform implements the rule evaluation engine: it applies a
// conversion schema to one source record and produces target field values.
// The engine is pure and synchronous - no I/O, no shared state across
// calls - so invocations are safe to retry under at-least-once delivery.
package transform

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// Context carries caller-supplied configuration into a transform call.
type Context struct {
	// TaskConfig backs {{task.KEY}} substitution in templated defaults.
	TaskConfig map[string]string
	// Variables are exposed to custom expressions as "vars".
	Variables map[string]any
}

// Result is the outcome of transforming one record. Data is populated only
// when Success is true; Errors holds one "<targetField>: <reason>" entry
// per failed required mapping.
type Result struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data,omitempty"`
	Errors  []string       `json:"errors,omitempty"`
}

// Engine evaluates conversion schemas against source records.
type Engine struct {
	logger *zap.Logger
	exprs  *ExpressionEvaluator
}

// Option configures an Engine.
type Option func(*Engine)

// WithExpressionEvaluator replaces the default custom-expression evaluator,
// letting callers set a different length cap from config.
func WithExpressionEvaluator(ev *ExpressionEvaluator) Option {
	return func(e *Engine) {
		if ev != nil {
			e.exprs = ev
		}
	}
}

// NewEngine creates a rule evaluation engine.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{logger: logger.Named("transform")}
	for _, opt := range opts {
		opt(e)
	}
	if e.exprs == nil {
		// The default environment only fails on conflicting declarations,
		// which the fixed variable set cannot produce.
		ev, err := NewExpressionEvaluator(e.logger, DefaultMaxExpressionLength)
		if err != nil {
			e.logger.Error("failed to create expression evaluator; custom transformations disabled", zap.Error(err))
		}
		e.exprs = ev
	}
	return e
}

// Transform applies every field mapping of the schema to the record. A
// failed optional mapping omits its key; a failed required mapping is
// appended to Errors. Success is true iff no required mapping failed.
func (e *Engine) Transform(schema *models.ConversionSchema, record map[string]any, tctx Context) Result {
	data := make(map[string]any)
	var errs []string

	for _, mapping := range schema.FieldMappings {
		value, reason := e.resolveMapping(mapping, record, tctx)

		if reason == "" && len(mapping.Validation) > 0 {
			if err := validateValue(mapping.Validation, value); err != nil {
				value, reason = nil, err.Error()
			}
		}

		if reason != "" || value == nil {
			if mapping.Required {
				if reason == "" {
					reason = "no value resolved"
				}
				errs = append(errs, fmt.Sprintf("%s: %s", mapping.TargetField, reason))
			}
			continue
		}

		setPath(data, mapping.TargetField, value)
	}

	result := Result{Success: len(errs) == 0, Errors: errs}
	if result.Success {
		result.Data = data
	}
	return result
}

// resolveMapping computes the raw value for one mapping. The string return
// is a failure reason, empty on success; an undefined value with an empty
// reason means the mapping simply resolved to nothing.
func (e *Engine) resolveMapping(m models.FieldMapping, record map[string]any, tctx Context) (any, string) {
	switch m.Kind {
	case models.MappingDirect:
		value, _ := lookupPath(record, m.SourceField)
		return value, ""

	case models.MappingLookup:
		// Dictionary resolution is not implemented; lookup mappings read
		// the source field as-is until the dictionary service exists.
		value, _ := lookupPath(record, m.SourceField)
		return value, ""

	case models.MappingFlatten:
		value, _ := lookupPath(record, m.SourceField+"."+m.Path)
		return value, ""

	case models.MappingTransform:
		value, _ := lookupPath(record, m.SourceField)
		if value == nil && !chainHasCustom(m.Transformations) {
			return nil, ""
		}
		return e.applyTransformations(value, m.Transformations, record, tctx), ""

	case models.MappingConditional:
		for _, rule := range m.Conditions {
			if evaluateCondition(rule.Condition, record) {
				return e.resolveOutcome(rule.Then, record, tctx), ""
			}
		}
		return resolveDefault(m.Default, tctx), ""

	case models.MappingDefault:
		return resolveDefault(m.Default, tctx), ""

	case models.MappingComposite:
		return resolveComposite(m, record), ""

	default:
		return nil, fmt.Sprintf("unknown mapping kind %q", m.Kind)
	}
}

// resolveOutcome produces a matching conditional rule's value: a static
// value when no field is named, otherwise a copy of the field optionally
// passed through a transformation chain.
func (e *Engine) resolveOutcome(outcome models.ConditionOutcome, record map[string]any, tctx Context) any {
	if outcome.Field == "" {
		return resolveDefault(outcome.Value, tctx)
	}
	value, _ := lookupPath(record, outcome.Field)
	if len(outcome.Transformations) == 0 {
		return value
	}
	return e.applyTransformations(value, outcome.Transformations, record, tctx)
}

// resolveDefault resolves a declared default. String defaults may carry
// {{task.KEY}} tokens substituted from the task configuration.
func resolveDefault(def any, tctx Context) any {
	if s, ok := def.(string); ok {
		return resolveTaskTemplate(s, tctx.TaskConfig)
	}
	return def
}

// resolveComposite joins or template-formats several source fields. Plain
// joins exclude blank values; templates substitute ${field} tokens.
func resolveComposite(m models.FieldMapping, record map[string]any) any {
	if m.Template != "" {
		return resolveFieldTemplate(m.Template, record)
	}

	separator := m.Separator
	if separator == "" {
		separator = " "
	}

	parts := make([]string, 0, len(m.SourceFields))
	for _, field := range m.SourceFields {
		value, _ := lookupPath(record, field)
		if s := jsonutil.FlexibleString(value); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return strings.Join(parts, separator)
}

func chainHasCustom(chain []models.Transformation) bool {
	for _, t := range chain {
		if t.Kind == models.TransformCustom {
			return true
		}
	}
	return false
}
