package schemas

import (
	"fmt"
	"strings"
)

// -- Finding Schemas --

// Severity is one of the four canonical severity levels the report pipeline
// operates on. Values are title-cased because they are printed verbatim in
// reports and prompts.
type Severity string

// Canonical severity levels, most severe first.
const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Severities lists the canonical levels in ranking order.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Weight returns the ranking weight of the severity. Lower sorts first.
// Non-canonical values weigh after every canonical level.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// IsCanonical reports whether s is one of the four canonical levels.
func (s Severity) IsCanonical() bool {
	return s.Weight() < 4
}

// RawFinding is a single tool-specific record as decoded from scanner output.
// Its shape varies by source; the normalizer reads it through a fixed set of
// field aliases. Nested objects are map[string]any, arrays are []any.
type RawFinding map[string]any

// LocationRef points at one place a finding was observed: either a source
// location (File and Line) or a web location (URL, Method and Param).
type LocationRef struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	URL    string `json:"url,omitempty"`
	Method string `json:"method,omitempty"`
	Param  string `json:"param,omitempty"`
}

// IsZero reports whether the reference carries no location at all.
func (l LocationRef) IsZero() bool {
	return l.File == "" && l.URL == ""
}

// String renders the location in a stable form used for deduplication and
// lexicographic ordering.
func (l LocationRef) String() string {
	if l.URL != "" {
		var b strings.Builder
		if l.Method != "" {
			b.WriteString(strings.ToUpper(l.Method))
			b.WriteByte(' ')
		}
		b.WriteString(l.URL)
		if l.Param != "" {
			fmt.Fprintf(&b, " [%s]", l.Param)
		}
		return b.String()
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// CanonicalFinding is the uniform record produced by normalization and
// consumed by every downstream stage. Severity is always canonical.
type CanonicalFinding struct {
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Remediation string   `json:"remediation,omitempty"`
	// Locations is deduplicated, lexicographically sorted and capped.
	Locations      []LocationRef `json:"locations,omitempty"`
	ReferenceLinks []string      `json:"reference_links,omitempty"`
	// OccurrenceCount is the number of raw records merged into this finding.
	OccurrenceCount int `json:"occurrence_count"`
}

// -- Batching and Narrative Schemas --

// Chunk is a bounded, ordered slice of findings narrated in a single call.
// StartIndex is the 1-based global position of the first finding.
type Chunk struct {
	Index      int                `json:"index"`
	StartIndex int                `json:"start_index"`
	Findings   []CanonicalFinding `json:"findings"`
}

// EndIndex returns the global position of the last finding in the chunk.
func (c Chunk) EndIndex() int {
	return c.StartIndex + len(c.Findings) - 1
}

// FragmentStatus records whether generation succeeded for a fragment.
type FragmentStatus string

const (
	FragmentOK           FragmentStatus = "ok"
	FragmentFailed       FragmentStatus = "failed"
	FragmentNotProcessed FragmentStatus = "not_processed"
)

// IntroChunkRef is the ChunkRef of the introduction fragment, which covers no findings.
const IntroChunkRef = -1

// NarrativeFragment is the text returned for one chunk, or a failure marker.
type NarrativeFragment struct {
	ChunkRef    int            `json:"chunk_ref"`
	StartIndex  int            `json:"start_index"`
	EndIndex    int            `json:"end_index"`
	Text        string         `json:"text"`
	Status      FragmentStatus `json:"status"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// IsIntro reports whether the fragment is the report introduction.
func (f NarrativeFragment) IsIntro() bool {
	return f.ChunkRef == IntroChunkRef
}
