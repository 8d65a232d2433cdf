// Package strings holds small string helpers shared by config parsing.
package strings

import (
	"strings"
)

// SplitUnique splits a separated list, trims each entry and drops blanks and
// repeats. The first occurrence wins, so order is preserved.
//
//	SplitUnique(" a:9092, b:9092,a:9092,", ",") // []string{"a:9092", "b:9092"}
func SplitUnique(raw, sep string) []string {
	var out []string
	seen := make(map[string]struct{})
	for part := range strings.SplitSeq(raw, sep) {
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
