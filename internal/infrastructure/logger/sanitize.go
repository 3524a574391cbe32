package logger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxFieldLength caps a single sanitized value. Tool output lines and URLs are
// client or subprocess controlled and can be arbitrarily long.
const maxFieldLength = 512

// SanitizeForLog escapes control characters so a value cannot forge log
// entries or drive the terminal, and truncates it to maxFieldLength bytes.
// Printable Unicode passes through unchanged.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(min(len(s), maxFieldLength))

	for _, r := range s {
		if b.Len() >= maxFieldLength {
			b.WriteString("...(truncated)")
			break
		}
		switch {
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == utf8.RuneError:
			b.WriteString(`\ufffd`)
		case r < 32 || r == 127:
			b.WriteString(fmt.Sprintf(`\x%02x`, r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
