package security

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	repeatedUnderscores = regexp.MustCompile(`_{2,}`)
)

// Device names Windows refuses as file names
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// ValidationError represents an unusable name
type ValidationError struct {
	Message string
	Input   string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SanitizeFilename reduces an uploaded file name to a safe storage key.
// Path components are discarded, whitespace becomes underscores and any
// character outside [A-Za-z0-9_.-] is removed. The result never contains a
// path separator and never starts with a dot.
func SanitizeFilename(name string) (string, error) {
	original := name

	// Keep only the final path element for both separator styles
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")

	if name == "" {
		return "", &ValidationError{Message: "invalid file name", Input: original}
	}

	base := strings.ToUpper(name)
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if reservedNames[base] {
		name = "_" + name
	}

	return name, nil
}

// ValidateSessionID checks that a session identifier is printable and bounded
func ValidateSessionID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Message: "session id is empty", Input: id}
	}
	if len(id) > 128 {
		return &ValidationError{Message: "session id too long", Input: id}
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return &ValidationError{Message: "session id contains control characters", Input: id}
		}
	}
	return nil
}

// SessionKey maps a session identifier onto a single safe path element
func SessionKey(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}
