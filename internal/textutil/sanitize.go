package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// FallbackSegment is returned when a title sanitizes to nothing.
const FallbackSegment = "untitled"

const maxSegmentBytes = 200

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. The result is trimmed of leading/trailing whitespace.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// SanitizeSegment maps an arbitrary title to a single path segment: the title
// is NFC-normalized, unsafe characters are replaced, whitespace runs become a
// single dash and leading or trailing dots and dashes are trimmed. Letters in
// any script are preserved. "Show A" becomes "Show-A".
func SanitizeSegment(title string) string {
	cleaned := SanitizeFileName(norm.NFC.String(title))

	var b strings.Builder
	b.Grow(len(cleaned))
	pendingDash := false
	for _, r := range cleaned {
		switch {
		case unicode.IsSpace(r) || r == '-':
			pendingDash = b.Len() > 0
		case unicode.IsControl(r) || r == utf8.RuneError:
			continue
		default:
			if pendingDash {
				b.WriteByte('-')
				pendingDash = false
			}
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), ".-")
	out = truncateRunes(out, maxSegmentBytes)
	out = strings.TrimRight(out, ".-")
	if out == "" {
		return FallbackSegment
	}
	return out
}

func truncateRunes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := 0
	for i := range value {
		if i > limit {
			break
		}
		cut = i
	}
	return value[:cut]
}
