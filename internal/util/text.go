package util

import (
	"fmt"
	"sort"
	"strings"
)

func ToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// EscapeSingleQuotes makes a serialized value safe for embedding in a SQL
// string literal.
func EscapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

func UnescapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, `\'`, "'")
}

func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
