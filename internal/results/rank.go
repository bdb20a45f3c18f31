package results

import (
	"sort"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// Rank returns a copy of findings stable-sorted by severity weight, most
// severe first. Findings of equal severity keep their relative order.
func Rank(findings []schemas.CanonicalFinding) []schemas.CanonicalFinding {
	ranked := append([]schemas.CanonicalFinding(nil), findings...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Severity.Weight() < ranked[j].Severity.Weight()
	})
	return ranked
}

// CountBySeverity tallies findings per canonical severity.
func CountBySeverity(findings []schemas.CanonicalFinding) map[schemas.Severity]int {
	counts := make(map[schemas.Severity]int, len(schemas.Severities))
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}
