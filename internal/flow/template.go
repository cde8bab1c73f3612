package flow

import (
	"fmt"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	// has tests presence, not truthiness: a false boolean or a zero is present.
	"has": func(data map[string]any, key string) bool {
		_, ok := data[key]
		return ok
	},
	"join": func(sep string, items []any) string {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, sep)
	},
}

func parseTemplate(name, text string) (*template.Template, error) {
	return template.New(name).
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(text)
}

// Render fills the definition's prompt with already validated input.
func Render(def *Definition, input map[string]any) (string, error) {
	var b strings.Builder
	if err := def.tmpl.Execute(&b, input); err != nil {
		return "", fmt.Errorf("flow %s: render prompt: %w", def.name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
