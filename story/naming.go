package story

import "fmt"

// UnusedName restituisce base se libero, altrimenti "base N" con il più piccolo N >= 1 libero.
// existing non viene modificato.
func UnusedName(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		taken[name] = struct{}{}
	}

	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s %d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
