package results

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidChunkSize is returned by the batcher for non-positive chunk sizes.
var ErrInvalidChunkSize = errors.New("chunk size must be a positive integer")

// maxRecordedErrors bounds how many NormalizationErrors Diagnostics keeps verbatim.
const maxRecordedErrors = 50

// NormalizationError describes a raw record that could not be normalized.
type NormalizationError struct {
	Index  int    // Position of the record in the raw input.
	Reason string // Why it was skipped.
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("record %d skipped: %s", e.Index, e.Reason)
}

// Diagnostics is the request-scoped record of what happened to the raw input.
// One instance is created per report run and passed through the stages; it is
// never shared between requests.
type Diagnostics struct {
	Total    int // Raw records seen.
	Accepted int // Records normalized to a canonical severity.
	// Malformed counts skipped records. Errors holds the first few of them.
	Malformed int
	Errors    []*NormalizationError
	// UnknownSeverity counts records per best-effort severity label that
	// matched no canonical level.
	UnknownSeverity map[string]int
	FilteredOut     int // Canonical records excluded by the severity filter.
	Merged          int // Duplicates folded into an existing finding.
}

// NewDiagnostics returns an empty Diagnostics.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{UnknownSeverity: make(map[string]int)}
}

func (d *Diagnostics) recordMalformed(index int, reason string) {
	d.Malformed++
	if len(d.Errors) < maxRecordedErrors {
		d.Errors = append(d.Errors, &NormalizationError{Index: index, Reason: reason})
	}
}

func (d *Diagnostics) recordUnknown(label string) {
	if d.UnknownSeverity == nil {
		d.UnknownSeverity = make(map[string]int)
	}
	d.UnknownSeverity[label]++
}

// UnknownTotal is the number of records excluded for an unrecognized severity.
func (d *Diagnostics) UnknownTotal() int {
	total := 0
	for _, n := range d.UnknownSeverity {
		total += n
	}
	return total
}

// UnknownLabels returns the unrecognized severity labels in sorted order.
func (d *Diagnostics) UnknownLabels() []string {
	labels := make([]string, 0, len(d.UnknownSeverity))
	for l := range d.UnknownSeverity {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
