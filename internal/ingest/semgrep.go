package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

type semgrepJSON struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Message  string `json:"message"`
			Severity string `json:"severity"` // INFO|WARNING|ERROR
			Lines    string `json:"lines"`
			Fix      string `json:"fix"`
			Metadata struct {
				References []string `json:"references"`
				Refs       []string `json:"refs"`
				Source     string   `json:"source"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

// DecodeSemgrep decodes `semgrep --json` output. Severity is passed through
// untouched; the normalizer owns translation.
func DecodeSemgrep(data []byte) ([]schemas.RawFinding, error) {
	var doc semgrepJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode semgrep JSON: %w", err)
	}

	out := make([]schemas.RawFinding, 0, len(doc.Results))
	for _, r := range doc.Results {
		refs := make([]any, 0, len(r.Extra.Metadata.References)+len(r.Extra.Metadata.Refs)+1)
		for _, ref := range r.Extra.Metadata.References {
			refs = append(refs, ref)
		}
		for _, ref := range r.Extra.Metadata.Refs {
			refs = append(refs, ref)
		}
		if r.Extra.Metadata.Source != "" {
			refs = append(refs, r.Extra.Metadata.Source)
		}

		out = append(out, schemas.RawFinding{
			"title":           r.CheckID,
			"severity":        r.Extra.Severity,
			"description":     r.Extra.Message,
			"remediation":     r.Extra.Fix,
			"file":            filepath.ToSlash(r.Path),
			"line":            float64(r.Start.Line),
			"code_snippet":    strings.TrimSpace(r.Extra.Lines),
			"reference_links": refs,
		})
	}
	return out, nil
}
