package sanitize

import (
	"strings"
	"unicode"
)

// SanitizeFilename removes potentially dangerous characters from a filename
// to prevent header injection and path traversal.
func SanitizeFilename(filename string) string {
	// Remove any null bytes
	filename = strings.ReplaceAll(filename, "\x00", "")

	// Remove newlines and carriage returns (header injection prevention)
	filename = strings.ReplaceAll(filename, "\n", "")
	filename = strings.ReplaceAll(filename, "\r", "")

	// Remove quotes (prevents breaking out of Content-Disposition)
	filename = strings.ReplaceAll(filename, `"`, "")
	filename = strings.ReplaceAll(filename, `'`, "")

	// Remove path separators
	filename = strings.ReplaceAll(filename, `\`, "")
	filename = strings.ReplaceAll(filename, "/", "")

	// Remove control characters
	result := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	// Trim spaces and dots from ends
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")

	if result == "" {
		return "download"
	}

	// Limit length to prevent overly long headers
	if len(result) > 200 {
		result = result[:200]
	}

	return result
}

// SanitizeForHeader sanitizes a filename specifically for use in HTTP headers.
// Uses ASCII-only fallback for maximum compatibility.
func SanitizeForHeader(filename string) string {
	safe := SanitizeFilename(filename)

	// For Content-Disposition we want ASCII-only; replace the rest.
	result := strings.Map(func(r rune) rune {
		if r > 127 {
			return '_'
		}
		return r
	}, safe)

	return result
}
