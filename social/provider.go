// Package social holds the shared plumbing for profile fetchers: bearer
// HTTP clients, provider error normalization and field helpers.
package social

import "strings"

// FieldList joins fields with commas, putting required first when the
// caller left it out. Empty entries and duplicates are dropped.
func FieldList(fields []string, required ...string) string {
	seen := map[string]bool{}
	out := make([]string, 0, len(fields)+len(required))

	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			return
		}
		seen[f] = true
		out = append(out, f)
	}

	for _, f := range required {
		add(f)
	}
	for _, f := range fields {
		add(f)
	}

	return strings.Join(out, ",")
}
