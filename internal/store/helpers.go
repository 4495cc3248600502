package store

import "strings"

// PlaceholderList returns "?,?,?" for n placeholders, for IN clauses.
func PlaceholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// StringsToArgs converts []string to []any for use with database/sql.
func StringsToArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}
