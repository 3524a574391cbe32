package validation

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// maxFilenameLength is the maximum allowed filename length (common filesystem limit).
const maxFilenameLength = 255

// dangerousChars break Content-Disposition quoting or act as path separators.
var dangerousChars = map[rune]bool{
	'"':  true,
	'\\': true,
	'/':  true,
	':':  true,
}

// SanitizeFilename makes a name safe for a Content-Disposition header.
// Dangerous and control characters become underscores, Unicode is preserved,
// the result is truncated to 255 bytes keeping the extension, and empty input
// yields "file".
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if r < 32 || r == 127 || dangerousChars[r] {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}

	result := strings.TrimSpace(sb.String())
	if strings.Trim(result, "_") == "" {
		return "file"
	}
	if len(result) > maxFilenameLength {
		result = truncatePreservingExtension(result)
	}
	return result
}

func truncatePreservingExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength {
		return truncateToBytes(name, maxFilenameLength)
	}
	base := strings.TrimSuffix(name, ext)
	return truncateToBytes(base, maxFilenameLength-len(ext)) + ext
}

// truncateToBytes cuts s to at most maxBytes bytes on a rune boundary.
func truncateToBytes(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

// AttachmentDisposition returns the Content-Disposition value for a download.
// ASCII names are sent as a quoted filename parameter; anything else goes
// through RFC 2231 encoding so the header stays ASCII.
func AttachmentDisposition(filename string) string {
	sanitized := SanitizeFilename(filename)
	if isASCII(sanitized) {
		return fmt.Sprintf("attachment; filename=%q", sanitized)
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": sanitized}); v != "" {
		return v
	}
	return "attachment"
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
