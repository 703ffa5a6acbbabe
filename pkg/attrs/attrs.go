// Package attrs reads values back out of slog-style key/value argument lists.
package attrs

import "fmt"

// String returns the value stored under key in kv, a flat [k1, v1, k2, v2...]
// list. Strings and fmt.Stringer values are returned as text; anything else,
// or a missing key, yields "".
func String(kv []any, key string) string {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); !ok || k != key {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			return v
		case fmt.Stringer:
			return v.String()
		}
		return ""
	}
	return ""
}

// First returns the first non-empty value among keys.
func First(kv []any, keys ...string) string {
	for _, key := range keys {
		if v := String(kv, key); v != "" {
			return v
		}
	}
	return ""
}
