package report

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// Summary is the human-readable account of a report request.
type Summary struct {
	RequestID string
	Style     string

	RawRecords      int
	Accepted        int
	Malformed       int
	UnknownSeverity int
	FilteredOut     int
	Merged          int
	// IgnoredSeverities are filter values that mapped to no canonical level.
	IgnoredSeverities []string

	// Findings is the number of grouped findings the report covers.
	Findings        int
	FindingsCovered int

	Chunks             int
	ChunksSucceeded    int
	ChunksFailed       int
	ChunksNotProcessed int
	// IntroStatus is empty when the style has no introduction.
	IntroStatus schemas.FragmentStatus

	Degradations int
	Cancelled    bool
}

// String renders the summary as indented lines, without a trailing newline.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request:  %s (style %s)\n", s.RequestID, s.Style)
	fmt.Fprintf(&b, "Input:    %d records, %d accepted, %d malformed, %d unknown severity, %d filtered out\n",
		s.RawRecords, s.Accepted, s.Malformed, s.UnknownSeverity, s.FilteredOut)
	if len(s.IgnoredSeverities) > 0 {
		fmt.Fprintf(&b, "Filter:   ignored unknown severities %s\n", strings.Join(s.IgnoredSeverities, ", "))
	}
	fmt.Fprintf(&b, "Findings: %d after grouping (%d duplicates merged)", s.Findings, s.Merged)
	if s.Chunks == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "\nChunks:   %d of %d succeeded, %d failed, %d not processed\n",
		s.ChunksSucceeded, s.Chunks, s.ChunksFailed, s.ChunksNotProcessed)
	fmt.Fprintf(&b, "Covered:  %d of %d findings narrated", s.FindingsCovered, s.Findings)
	if s.IntroStatus != "" {
		fmt.Fprintf(&b, "\nIntro:    %s", s.IntroStatus)
	}
	if s.Degradations > 0 {
		fmt.Fprintf(&b, "\nMarkup:   %d malformed constructs recovered", s.Degradations)
	}
	if s.Cancelled {
		b.WriteString("\nCancelled before all chunks were processed")
	}
	return b.String()
}
