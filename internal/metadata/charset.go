package metadata

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Charset selects how stored tag bytes are decoded.
type Charset int

const (
	// CharsetAuto trusts a UTF-8 declaration or valid UTF-8 bytes and falls
	// back to ISO-8859-1.
	CharsetAuto Charset = iota
	CharsetUTF8
	CharsetLatin1
)

func (c Charset) String() string {
	switch c {
	case CharsetUTF8:
		return "utf-8"
	case CharsetLatin1:
		return "latin-1"
	}
	return "auto"
}

// ParseCharset accepts "auto", "utf-8" and "latin-1" with common spellings.
func ParseCharset(name string) (Charset, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "auto":
		return CharsetAuto, true
	case "utf-8", "utf8":
		return CharsetUTF8, true
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return CharsetLatin1, true
	}
	return CharsetAuto, false
}

func decodeText(b []byte, cs Charset) string {
	switch cs {
	case CharsetUTF8:
		return strings.ToValidUTF8(string(b), "�")
	case CharsetLatin1:
		return latin1(b)
	}
	if utf8.Valid(b) {
		return string(b)
	}
	return latin1(b)
}

func latin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
