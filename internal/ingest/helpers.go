package ingest

import "strings"

func hasScheme(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
