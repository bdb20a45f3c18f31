package results

import (
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// SeverityFilter restricts a report to a set of canonical severities.
// The zero value allows everything.
type SeverityFilter struct {
	allowed map[schemas.Severity]bool
	active  bool
}

// NewSeverityFilter builds a filter from free-form, case-insensitive values
// mapped through the same translation table as normalization. Values that
// map to no canonical level are returned as ignored; they still make the
// filter active, so a filter made only of unknown values admits nothing.
func NewSeverityFilter(values []string) (SeverityFilter, []string) {
	f := SeverityFilter{allowed: make(map[schemas.Severity]bool)}
	var ignored []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		f.active = true
		sev, ok := TranslateSeverity(v)
		if !ok {
			ignored = append(ignored, v)
			continue
		}
		f.allowed[sev] = true
	}
	return f, ignored
}

// Active reports whether the filter restricts anything.
func (f SeverityFilter) Active() bool {
	return f.active
}

// Allows reports whether findings of the given severity pass the filter.
func (f SeverityFilter) Allows(s schemas.Severity) bool {
	if !f.active {
		return s.IsCanonical()
	}
	return f.allowed[s]
}

// Allowed returns the admitted severities in ranking order.
func (f SeverityFilter) Allowed() []schemas.Severity {
	var out []schemas.Severity
	for _, s := range schemas.Severities {
		if f.Allows(s) {
			out = append(out, s)
		}
	}
	return out
}
