package llm

import "strings"

// DefaultRestrictedModels accept only default sampling parameters
var DefaultRestrictedModels = []string{"o3-mini", "o3", "o4-mini"}

// IsRestricted reports whether model is in the restricted list. Matching is
// case-insensitive and also applies to deployment names prefixed with a
// restricted model (e.g. "o3-mini-2025-01-31").
func IsRestricted(model string, restricted []string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if m == "" {
		return false
	}
	for _, r := range restricted {
		r = strings.ToLower(r)
		if m == r || strings.HasPrefix(m, r+"-") {
			return true
		}
	}
	return false
}

// Minimal strips the sampling parameters restricted models reject
func (o Options) Minimal() Options {
	return Options{MaxTokens: o.MaxTokens}
}

// isUnsupportedParam reports whether an upstream error rejects a sampling
// parameter
func isUnsupportedParam(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unsupported parameter") ||
		strings.Contains(msg, "unsupported_parameter") ||
		strings.Contains(msg, "unsupported value") ||
		strings.Contains(msg, "temperature")
}
