package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aletheia-ng/pidginforge/internal/dataset"
)

// placeholderPattern matches {name} markers in a template.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// TemplateError indicates a template and a combination disagree about field
// names. It is fatal: rendering is rejected rather than silently skipping
// unmatched placeholders.
type TemplateError struct {
	Msg string
}

func (e *TemplateError) Error() string {
	return "template error: " + e.Msg
}

// Render substitutes each {name} placeholder in the template with the
// combination's value for that field. Every placeholder must name a field of
// the combination and every field must be referenced by the template;
// either mismatch is a TemplateError. Pure function.
func Render(template string, combo dataset.Combination) (string, error) {
	referenced := make(map[string]bool, len(combo))
	var missing []string

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := combo[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		referenced[name] = true
		return value
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &TemplateError{
			Msg: fmt.Sprintf("template references unknown fields: %s", strings.Join(missing, ", ")),
		}
	}

	var unused []string
	for name := range combo {
		if !referenced[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) > 0 {
		sort.Strings(unused)
		return "", &TemplateError{
			Msg: fmt.Sprintf("combination fields never referenced by template: %s", strings.Join(unused, ", ")),
		}
	}

	return rendered, nil
}

// Placeholders returns the distinct placeholder names in a template, in
// first-appearance order.
func Placeholders(template string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
