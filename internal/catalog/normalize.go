package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const tagSeparator = ", "

var lowerCaser = cases.Lower(language.Und)

// NormalizeTag trims and lower-cases a single tag and collapses inner
// whitespace.
func NormalizeTag(in string) string {
	trimmed := strings.TrimSpace(norm.NFC.String(in))
	if trimmed == "" {
		return ""
	}
	collapsed := strings.Join(strings.Fields(trimmed), " ")
	return lowerCaser.String(collapsed)
}

// NormalizeTags returns the distinct normalized tags in first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SplitTags parses the display form of a tag set. Commas separate tags.
func SplitTags(text string) []string {
	return NormalizeTags(strings.Split(text, ","))
}

// TagText renders a tag set in display form.
func TagText(tags []string) string {
	return strings.Join(NormalizeTags(tags), tagSeparator)
}

// NormalizeCaption trims trailing whitespace and terminates a non-empty
// caption with a period.
func NormalizeCaption(in string) string {
	c := strings.TrimRight(norm.NFC.String(in), " \t\r\n")
	if c == "" || strings.HasSuffix(c, ".") {
		return c
	}
	return c + "."
}

// Normalize applies the write-time rules for field f. It is idempotent.
func Normalize(f Field, v string) string {
	switch f {
	case FieldTags:
		return TagText(SplitTags(v))
	case FieldCaption:
		return NormalizeCaption(v)
	case FieldPath:
		return v
	default:
		return strings.TrimSpace(norm.NFC.String(v))
	}
}
