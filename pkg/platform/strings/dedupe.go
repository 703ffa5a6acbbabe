// Package strings has small text helpers shared by config and request parsing.
package strings

import "strings"

// SplitUnique splits v on sep, trims each part and drops empty and repeated
// parts. The first occurrence wins, so order is preserved.
func SplitUnique(v, sep string) []string {
	if v == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(v, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
