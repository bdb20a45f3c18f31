package markup

import (
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

const boldDelimiter = "**"

// splitBold splits a line into alternating plain and bold runs. An unmatched
// trailing delimiter is dropped and the text after it stays plain; the
// second result reports that degradation.
func splitBold(line string) ([]schemas.TextRun, bool) {
	parts := strings.Split(line, boldDelimiter)
	unmatched := (len(parts)-1)%2 == 1

	var runs []schemas.TextRun
	for i, p := range parts {
		if p == "" {
			continue
		}
		bold := i%2 == 1 && !(unmatched && i == len(parts)-1)
		if n := len(runs); n > 0 && runs[n-1].Bold == bold {
			runs[n-1].Text += p
			continue
		}
		runs = append(runs, schemas.TextRun{Text: p, Bold: bold})
	}
	return runs, unmatched
}

// stripEmphasis removes bold delimiters from text used in single-style nodes.
func stripEmphasis(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, boldDelimiter, ""))
}
