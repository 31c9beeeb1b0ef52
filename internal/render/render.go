package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// MissingValue substitutes for any field that is absent or empty.
const MissingValue = "N/A"

// placeholderPattern matches named placeholders of the form {field_name}.
// Markdown templates carry literal braces nowhere, so a simple pattern is
// sufficient and keeps external templates editable without Go knowledge.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Sanitize normalizes a field value for rendering. Empty, whitespace-only
// and NaN-ish values become the missing-value sentinel; everything else
// passes through unchanged. The template itself is trusted, no escaping.
func Sanitize(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") || strings.EqualFold(trimmed, "<nil>") {
		return MissingValue
	}
	return value
}

// Render substitutes named placeholders in the template with values from
// fields. Placeholders without a matching key render as the missing-value
// sentinel; rendering never fails.
func Render(template string, fields map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := fields[key]; ok {
			return value
		}
		return MissingValue
	})
}

// LoadTemplate returns the template text to render with. An existing file at
// path always wins so operators can tune issue wording without redeploying.
// When the file is absent the built-in fallback is used, unless the external
// template is required, in which case the not-found error propagates.
func LoadTemplate(path string, fallback string, required bool) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if os.IsNotExist(err) && !required {
		return fallback, nil
	}
	return "", fmt.Errorf("failed to load template %q: %w", path, err)
}
