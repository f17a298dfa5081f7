package transcript

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedFile is returned for uploads that are not plain-text exports.
var ErrUnsupportedFile = errors.New("only .txt files are supported")

// CheckFilename accepts only .txt exports.
func CheckFilename(name string) error {
	if name == "" || !strings.HasSuffix(strings.ToLower(name), ".txt") {
		return ErrUnsupportedFile
	}
	return nil
}

// Decode returns raw as text, falling back to ISO-8859-1 when it is not valid UTF-8.
func Decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	// Every byte is defined in ISO-8859-1, so this cannot fail.
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}
