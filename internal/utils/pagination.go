// Package utils provides query-string parsing helpers shared by the list
// endpoints (conversations, messages, recipes), which all take page and
// page_size parameters.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, tolerating surrounding whitespace. An
// empty or unparseable value yields def, so a garbled query parameter
// degrades to the endpoint's default instead of failing the request.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampInt bounds n to [lo, hi]. Used to keep page_size within the window
// the repositories are tuned for.
func ClampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
