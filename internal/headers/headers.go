// Package headers looks up request header values the way API Gateway
// delivers them: a flat map with caller-chosen key casing.
package headers

import (
	"sort"
	"strings"
)

const (
	Authorization = "authorization"
)

// FirstValue returns the first value of the named header, matched
// case-insensitively. A value holding several comma-separated entries is
// cut at the first comma; surrounding whitespace is preserved.
//
// When several keys differ only by case (e.g. "Authorization" and
// "authorization"), the key that sorts first byte-wise wins, so the result
// never depends on map iteration order.
func FirstValue(h map[string]string, name string) (string, bool) {
	name = strings.ToLower(name)

	var matches []string
	for k := range h {
		if strings.ToLower(k) == name {
			matches = append(matches, k)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	if len(matches) > 1 {
		sort.Strings(matches)
	}

	value := h[matches[0]]
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	return value, true
}
