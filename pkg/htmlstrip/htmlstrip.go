// Package htmlstrip removes markup from vendor-supplied text.
package htmlstrip

import (
	"strings"

	"golang.org/x/net/html"
)

// Strip returns s with every HTML tag, comment and doctype removed.
// Text content is kept and character references are decoded.
func Strip(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; keep what was decoded so far.
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
