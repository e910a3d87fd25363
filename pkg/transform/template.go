package transform

import (
	"regexp"

	"github.com/fabrik-data/fabrik-engine/pkg/jsonutil"
)

var (
	// {{task.KEY}} tokens in templated defaults.
	taskTokenPattern = regexp.MustCompile(`\{\{task\.([A-Za-z0-9_.-]+)\}\}`)
	// ${field} tokens in composite templates; field may be a dotted path.
	fieldTokenPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// resolveTaskTemplate substitutes {{task.KEY}} tokens against the caller's
// task configuration. Unknown keys resolve to empty strings.
func resolveTaskTemplate(s string, taskConfig map[string]string) string {
	return taskTokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		key := taskTokenPattern.FindStringSubmatch(token)[1]
		return taskConfig[key]
	})
}

// resolveFieldTemplate substitutes ${field} tokens with values read from
// the record. Fields that do not resolve become empty strings.
func resolveFieldTemplate(template string, record map[string]any) string {
	return fieldTokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		path := fieldTokenPattern.FindStringSubmatch(token)[1]
		value, _ := lookupPath(record, path)
		return jsonutil.FlexibleString(value)
	})
}
