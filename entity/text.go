package entity

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
)

// putString writes s as ISO-8859-1 into the fixed-width field dst, truncating long
// values and zero padding short ones. Runes outside Latin-1 become '?'.
func putString(dst []byte, s string) {
	n := 0
	for _, r := range s {
		if n == len(dst) {
			return
		}
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			b = '?'
		}
		dst[n] = b
		n++
	}
	clear(dst[n:])
}

// getString reads a zero-terminated ISO-8859-1 field.
func getString(src []byte) string {
	var sb strings.Builder
	for _, b := range src {
		if b == 0 {
			break
		}
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(b))
	}
	return sb.String()
}

// compareText orders names the way the index does: case-insensitively.
func compareText(a, b string) int {
	return strings.Compare(fold(a), fold(b))
}

// A Caser keeps state between calls, so each comparison borrows its own.
var folders = sync.Pool{New: func() any { c := cases.Fold(); return &c }}

func fold(s string) string {
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(s)
}
