package filetext

import (
	"strings"
	"unicode/utf8"
)

// extractTxt decodes an uploaded text file tolerantly: valid UTF-8 is
// kept as is, anything else is reinterpreted as Latin-1 so no upload
// is rejected over encoding.
func extractTxt(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String()
}
