package transform

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
	"github.com/fabrik-data/fabrik-engine/pkg/models"
)

// validateValue runs validation rules in declared order. The first failing
// rule short-circuits with its configured message; a default message is
// derived when the rule carries none. A nil return means the value passed.
func validateValue(rules []models.ValidationRule, value any) error {
	for _, rule := range rules {
		if err := applyValidationRule(rule, value); err != nil {
			return err
		}
	}
	return nil
}

func applyValidationRule(rule models.ValidationRule, value any) error {
	switch rule.Kind {
	case models.ValidationRequired:
		if value == nil || jsonutil.FlexibleString(value) == "" {
			return ruleError(rule, "value is required")
		}

	case models.ValidationMin:
		n, ok := toNumber(value)
		bound, bok := toNumber(rule.Value)
		if !ok || !bok || n < bound {
			return ruleError(rule, fmt.Sprintf("must be a number of at least %v", rule.Value))
		}

	case models.ValidationMax:
		n, ok := toNumber(value)
		bound, bok := toNumber(rule.Value)
		if !ok || !bok || n > bound {
			return ruleError(rule, fmt.Sprintf("must be a number of at most %v", rule.Value))
		}

	case models.ValidationMinLength:
		bound, bok := toNumber(rule.Value)
		if !bok || len([]rune(jsonutil.FlexibleString(value))) < int(bound) {
			return ruleError(rule, fmt.Sprintf("must be at least %v characters", rule.Value))
		}

	case models.ValidationMaxLength:
		bound, bok := toNumber(rule.Value)
		if !bok || len([]rune(jsonutil.FlexibleString(value))) > int(bound) {
			return ruleError(rule, fmt.Sprintf("must be at most %v characters", rule.Value))
		}

	case models.ValidationPattern:
		re, err := regexp.Compile(jsonutil.FlexibleString(rule.Value))
		if err != nil || !re.MatchString(jsonutil.FlexibleString(value)) {
			return ruleError(rule, fmt.Sprintf("must match pattern %v", rule.Value))
		}

	case models.ValidationEnum:
		if !valueInList(value, rule.Value) {
			return ruleError(rule, fmt.Sprintf("must be one of %v", rule.Value))
		}
	}
	return nil
}

func ruleError(rule models.ValidationRule, fallback string) error {
	if rule.Message != "" {
		return errors.New(rule.Message)
	}
	return errors.New(fallback)
}
