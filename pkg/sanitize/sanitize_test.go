package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "report.pdf",
			expected: "report.pdf",
		},
		{
			name:     "path traversal",
			input:    "../../../etc/passwd",
			expected: "etcpasswd",
		},
		{
			name:     "null byte",
			input:    "file\x00.txt",
			expected: "file.txt",
		},
		{
			name:     "newline injection",
			input:    "file\nname.txt",
			expected: "filename.txt",
		},
		{
			name:     "carriage return",
			input:    "file\rname.txt",
			expected: "filename.txt",
		},
		{
			name:     "quotes removed",
			input:    `file"name.txt`,
			expected: "filename.txt",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "download",
		},
		{
			name:     "only dots",
			input:    "...",
			expected: "download",
		},
		{
			name:     "unicode preserved",
			input:    "レポート.txt",
			expected: "レポート.txt",
		},
		{
			name:     "spaces preserved",
			input:    "quarterly report.pdf",
			expected: "quarterly report.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeForHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "normal filename",
			input:    "hello-world.txt",
			expected: "hello-world.txt",
		},
		{
			name:     "quotes stripped",
			input:    `file" name.txt`,
			expected: "file name.txt",
		},
		{
			name:     "header injection attempt",
			input:    "file\r\nContent-Length: 0",
			expected: "fileContent-Length: 0",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "download",
		},
		{
			name:     "non-ascii replaced",
			input:    "レポート.txt",
			expected: "____.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForHeader(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeForHeader(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeFilenameLengthLimit(t *testing.T) {
	longName := strings.Repeat("a", 300)

	result := SanitizeFilename(longName)
	if len(result) > 200 {
		t.Errorf("expected filename length <= 200, got %d", len(result))
	}
}
