package forms

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy     *bluemonday.Policy
	textPolicyOnce sync.Once
)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}

// sanitizeText trims raw and strips any markup, leaving plain text.
func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textSanitizer().Sanitize(trimmed)))
}

// sanitizeFields cleans the required string fields of obj in place.
func sanitizeFields(obj map[string]any) {
	for _, field := range RequiredFields {
		if s, ok := obj[field].(string); ok {
			obj[field] = sanitizeText(s)
		}
	}
}
