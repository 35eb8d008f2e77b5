package security_test

import (
	"strings"
	"testing"

	"github.com/Rrens/rag-assistant/internal/security"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "report.pdf", "report.pdf", false},
		{"spaces", "Quarterly  Report 2024.xlsx", "Quarterly_Report_2024.xlsx", false},
		{"unix traversal", "../../etc/passwd", "passwd", false},
		{"windows traversal", `..\..\Windows\system.ini`, "system.ini", false},
		{"absolute path", "/tmp/uploads/file.pdf", "file.pdf", false},
		{"hidden file", ".bashrc", "bashrc", false},
		{"special chars", "inv<oi>ce:*?|.pdf", "invoice.pdf", false},
		{"non ascii", "résumé.pdf", "rsum.pdf", false},
		{"reserved device", "con.pdf", "_con.pdf", false},
		{"only dots", "...", "", true},
		{"empty", "", "", true},
		{"only unicode", "文件", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := security.SanitizeFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SanitizeFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.ContainsAny(got, `/\`) {
				t.Errorf("SanitizeFilename(%q) kept a path separator: %q", tt.input, got)
			}
		})
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"default", "default", false},
		{"uuid", "6f1c2a4e-8b9d-4c3e-a1f2-123456789abc", false},
		{"slashes allowed", "team/alpha", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"too long", strings.Repeat("x", 129), true},
		{"control chars", "abc\x00def", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := security.ValidateSessionID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestSessionKey(t *testing.T) {
	key := security.SessionKey("../../etc")
	if strings.ContainsAny(key, `/\.`) {
		t.Errorf("SessionKey produced unsafe path element %q", key)
	}
	if security.SessionKey("a") == security.SessionKey("b") {
		t.Error("SessionKey should be injective")
	}
}
