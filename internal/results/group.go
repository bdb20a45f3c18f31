package results

import (
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// groupKey identifies one logical finding.
type groupKey struct {
	title    string
	severity schemas.Severity
}

func keyOf(f schemas.CanonicalFinding) groupKey {
	return groupKey{
		title:    strings.ToLower(collapseSpace(f.Title)),
		severity: f.Severity,
	}
}

// Grouper merges findings that share a normalized title and severity.
type Grouper struct {
	maxLocations int
}

// NewGrouper creates a Grouper. A non-positive cap selects DefaultMaxLocations.
func NewGrouper(maxLocations int) *Grouper {
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	return &Grouper{maxLocations: maxLocations}
}

// Group merges duplicates and returns the groups in first-seen order.
// Locations are unioned, occurrence counts summed, and the first non-empty
// description, remediation and reference links win. The input is not
// modified. Group is idempotent.
func (g *Grouper) Group(findings []schemas.CanonicalFinding, diag *Diagnostics) []schemas.CanonicalFinding {
	index := make(map[groupKey]int, len(findings))
	out := make([]schemas.CanonicalFinding, 0, len(findings))

	for _, f := range findings {
		if f.OccurrenceCount < 1 {
			f.OccurrenceCount = 1
		}
		key := keyOf(f)
		pos, seen := index[key]
		if !seen {
			index[key] = len(out)
			f.Locations = append([]schemas.LocationRef(nil), f.Locations...)
			f.ReferenceLinks = append([]string(nil), f.ReferenceLinks...)
			out = append(out, f)
			continue
		}

		merged := &out[pos]
		merged.OccurrenceCount += f.OccurrenceCount
		merged.Locations = append(merged.Locations, f.Locations...)
		if merged.Description == "" {
			merged.Description = f.Description
		}
		if merged.Remediation == "" {
			merged.Remediation = f.Remediation
		}
		if len(merged.ReferenceLinks) == 0 {
			merged.ReferenceLinks = append([]string(nil), f.ReferenceLinks...)
		}
		if diag != nil {
			diag.Merged++
		}
	}

	for i := range out {
		out[i].Locations = CanonicalLocations(out[i].Locations, g.maxLocations)
		if len(out[i].ReferenceLinks) == 0 {
			out[i].ReferenceLinks = nil
		}
	}
	return out
}
