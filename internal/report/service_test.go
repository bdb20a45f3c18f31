package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/render"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/style"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testCatalog = `
[styles.plain]
title = "Plain Report"
chunk_size = 2
final_marker = "### FINAL ANSWER"
footer = "Generated for review."

[styles.plain.sections]
findings = "Findings"

[styles.plain.body]
role = "Auditor"
task = "Findings {{.StartIndex}}-{{.EndIndex}} for {{.Target}}"
`

// memSource is an in-memory FindingSource.
type memSource struct {
	raws []schemas.RawFinding
	err  error
}

func (m memSource) RawFindings(context.Context) ([]schemas.RawFinding, error) {
	return m.raws, m.err
}

// fakeLLM answers each call through respond and records the requests.
type fakeLLM struct {
	mu      sync.Mutex
	calls   []schemas.GenerationRequest
	respond func(call int, req schemas.GenerationRequest) (string, error)
}

func (f *fakeLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.respond == nil {
		return "### FINAL ANSWER\nNarrative.", nil
	}
	return f.respond(call, req)
}

func (f *fakeLLM) Close() error { return nil }

func testConfig() config.ReportConfig {
	return config.NewDefaultConfig().Report()
}

func newTestService(t *testing.T, client schemas.LLMClient) *Service {
	t.Helper()
	catalog, err := style.Parse(testCatalog)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.DefaultStyle = "plain"
	cfg.PacingDelay = 0
	svc := NewService(cfg, catalog, client, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) }
	return svc
}

func highFindings(titles ...string) []schemas.RawFinding {
	raws := make([]schemas.RawFinding, len(titles))
	for i, title := range titles {
		raws[i] = schemas.RawFinding{"title": title, "severity": "ERROR", "description": "desc " + title}
	}
	return raws
}

func headings(rec *render.Recorder) []string {
	var out []string
	for _, n := range rec.Nodes {
		if n.Kind == schemas.NodeHeading {
			out = append(out, n.Text)
		}
	}
	return out
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{respond: func(call int, _ schemas.GenerationRequest) (string, error) {
		return "Preamble to drop\n### FINAL ANSWER\n\n" + []string{"1. (High) A", "3. (High) C"}[call] + "\nBody text.", nil
	}}
	svc := newTestService(t, llm)
	rec := render.NewRecorder()

	res, err := svc.Generate(context.Background(), Request{
		Source:   memSource{raws: append(highFindings("A", "B", "C"), schemas.RawFinding{"title": "a", "severity": "high"})},
		Target:   "shop.example",
		Renderer: rec,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Nil(t, res.Reason)
	assert.NotEmpty(t, res.Artifact)
	require.Len(t, res.Findings, 3, "the duplicate of A is merged")
	assert.Equal(t, 2, res.Findings[0].OccurrenceCount)

	sum := res.Summary
	assert.NotEmpty(t, sum.RequestID)
	assert.Equal(t, "plain", sum.Style)
	assert.Equal(t, 4, sum.RawRecords)
	assert.Equal(t, 1, sum.Merged)
	assert.Equal(t, 3, sum.Findings)
	assert.Equal(t, 2, sum.Chunks)
	assert.Equal(t, 2, sum.ChunksSucceeded)
	assert.Equal(t, 3, sum.FindingsCovered)
	assert.Empty(t, sum.IntroStatus)

	require.Len(t, rec.Covers, 1)
	assert.Equal(t, schemas.CoverPage{Title: "Plain Report", Subtitle: "3 findings (High: 3)", Target: "shop.example", Date: "2026-03-14"}, rec.Covers[0])
	assert.Equal(t, []string{"Findings", "1. (High) A", "3. (High) C"}, headings(rec))
	last := rec.Nodes[len(rec.Nodes)-1]
	assert.Equal(t, "Generated for review.", last.Text, "the footer closes the document")

	require.Len(t, llm.calls, 2)
	assert.Equal(t, "Findings 1-2 for shop.example", llm.calls[0].UserPrompt)
	assert.Equal(t, "Findings 3-3 for shop.example", llm.calls[1].UserPrompt)
	assert.Equal(t, "You are a Auditor.", llm.calls[0].SystemPrompt)
	assert.Equal(t, schemas.TierPowerful, llm.calls[0].Tier)
}

func TestGenerate_EmptyAfterFilter(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{}
	svc := newTestService(t, llm)
	rec := render.NewRecorder()

	res, err := svc.Generate(context.Background(), Request{
		Source:     memSource{raws: highFindings("A", "B")},
		Severities: []string{"Low"},
		Renderer:   rec,
	})
	require.NoError(t, err, "an empty result is not an error")
	assert.Equal(t, StatusEmpty, res.Status)
	assert.ErrorIs(t, res.Reason, ErrNoFindings)
	assert.Nil(t, res.Artifact)
	assert.Equal(t, 2, res.Summary.FilteredOut)
	assert.Empty(t, llm.calls)
	assert.Empty(t, rec.Nodes, "no blank document is produced")
}

func TestGenerate_TotalFailure(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{respond: func(int, schemas.GenerationRequest) (string, error) {
		return "", errors.New("invalid api key")
	}}
	svc := newTestService(t, llm)

	res, err := svc.Generate(context.Background(), Request{
		Source:   memSource{raws: highFindings("A", "B", "C")},
		Renderer: render.NewRecorder(),
	})
	require.ErrorIs(t, err, ErrTotalFailure)
	assert.Equal(t, StatusFailure, res.Status)
	assert.Nil(t, res.Artifact)
	assert.Equal(t, 2, res.Summary.ChunksFailed)
	assert.Contains(t, err.Error(), "(2 chunks)")
}

func TestGenerate_PartialFailure(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{respond: func(call int, _ schemas.GenerationRequest) (string, error) {
		if call == 1 {
			return "", errors.New("upstream 503")
		}
		return "### FINAL ANSWER\n1. (High) A", nil
	}}
	svc := newTestService(t, llm)
	rec := render.NewRecorder()

	res, err := svc.Generate(context.Background(), Request{
		Source:   memSource{raws: highFindings("A", "B", "C", "D")},
		Renderer: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.NotEmpty(t, res.Artifact)
	assert.Equal(t, 1, res.Summary.ChunksFailed)
	assert.Equal(t, 2, res.Summary.FindingsCovered)

	assert.Contains(t, headings(rec), "[Generation failed for findings 3-4]")
	var detail string
	for i, n := range rec.Nodes {
		if n.Kind == schemas.NodeHeading && n.Text == "[Generation failed for findings 3-4]" {
			detail = schemas.PlainText(rec.Nodes[i+1].Runs)
		}
	}
	assert.Equal(t, "generation failed for findings 3-4: plain.body: upstream 503", detail)
}

func TestGenerate_Cancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llm := &fakeLLM{respond: func(int, schemas.GenerationRequest) (string, error) {
		cancel()
		return "### FINAL ANSWER\n1. (High) A", nil
	}}
	svc := newTestService(t, llm)
	rec := render.NewRecorder()

	res, err := svc.Generate(ctx, Request{
		Source:   memSource{raws: highFindings("A", "B", "C", "D", "E", "F")},
		Renderer: rec,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, res.Status)
	assert.True(t, res.Summary.Cancelled)
	assert.Equal(t, 1, res.Summary.ChunksSucceeded)
	assert.Equal(t, 2, res.Summary.ChunksNotProcessed)
	assert.Len(t, llm.calls, 1)
	assert.Equal(t, []string{
		"Findings",
		"1. (High) A",
		"[Findings 3-4 not processed: report cancelled]",
		"[Findings 5-6 not processed: report cancelled]",
	}, headings(rec))
}

func TestGenerate_RenderError(t *testing.T) {
	t.Parallel()
	svc := newTestService(t, &fakeLLM{})
	rec := render.NewRecorder()
	rec.FinalizeErr = errors.New("font not found")

	res, err := svc.Generate(context.Background(), Request{
		Source:   memSource{raws: highFindings("A")},
		Renderer: rec,
	})
	require.ErrorIs(t, err, ErrRender)

	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.EqualError(t, renderErr.Err, "font not found")
	assert.Equal(t, StatusFailure, res.Status)
	assert.Nil(t, res.Artifact, "the partial document is discarded")
}

func TestGenerate_RequestErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    Request
		target error
		msg    string
	}{
		{
			name:   "unknown style",
			req:    Request{Style: "poetic", Source: memSource{raws: highFindings("A")}},
			target: ErrUnknownStyle,
		},
		{
			name: "source failure",
			req:  Request{Source: memSource{err: errors.New("connection refused")}},
			msg:  "failed to load findings: connection refused",
		},
		{
			name: "missing source",
			req:  Request{},
			msg:  "report request has no finding source",
		},
		{
			name: "negative chunk size",
			req:  Request{ChunkSize: -1, Source: memSource{raws: highFindings("A")}},
			msg:  "chunk size must be a positive integer",
		},
		{
			name: "unsupported format",
			req:  Request{Format: "docx", Source: memSource{raws: highFindings("A")}},
			msg:  "unsupported output format: docx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := newTestService(t, &fakeLLM{}).Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, StatusFailure, res.Status)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestGenerate_DefaultTechnicalStyle(t *testing.T) {
	t.Parallel()
	catalog, err := style.Default()
	require.NoError(t, err)
	cfg := testConfig()
	cfg.PacingDelay = 0

	llm := &fakeLLM{respond: func(call int, _ schemas.GenerationRequest) (string, error) {
		if call == 0 {
			return "### FINAL ANSWER\n\nI. Executive summary\nThe target is exposed.", nil
		}
		return "### FINAL ANSWER\n\n1. (High) A\n\nA. Understanding the vulnerability\n- **Integrity:** No impact", nil
	}}
	svc := NewService(cfg, catalog, llm, zap.NewNop())
	rec := render.NewRecorder()

	res, err := svc.Generate(context.Background(), Request{
		Source:   memSource{raws: highFindings("A")},
		Target:   "shop.example",
		Renderer: rec,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "technical", res.Summary.Style)
	assert.Equal(t, schemas.FragmentOK, res.Summary.IntroStatus)

	require.Len(t, llm.calls, 2)
	assert.Contains(t, llm.calls[0].UserPrompt, "Write the first page of the security audit report for shop.example.")
	assert.Contains(t, llm.calls[0].UserPrompt, "Severity breakdown: High: 1")
	assert.Contains(t, llm.calls[1].UserPrompt, "The first finding MUST be numbered 1, the second 2")

	hs := headings(rec)
	require.GreaterOrEqual(t, len(hs), 5)
	assert.Equal(t, []string{"Overview", "I. Executive summary", "Detailed findings", "1. (High) A", "A. Understanding the vulnerability"}, hs[:5])

	var sawBreak bool
	for _, n := range rec.Nodes {
		if n.Kind == schemas.NodePageBreak {
			sawBreak = true
		}
	}
	assert.True(t, sawBreak, "the technical style starts the findings on a new page")
}

func TestSummaryString(t *testing.T) {
	t.Parallel()
	sum := Summary{
		RequestID: "req-1", Style: "technical",
		RawRecords: 10, Accepted: 8, Malformed: 1, UnknownSeverity: 1, FilteredOut: 2,
		Merged: 3, Findings: 3, FindingsCovered: 2,
		Chunks: 2, ChunksSucceeded: 1, ChunksFailed: 1,
		IntroStatus: schemas.FragmentOK, Degradations: 2,
	}
	out := sum.String()
	assert.True(t, strings.HasPrefix(out, "Request:  req-1 (style technical)\n"))
	assert.Contains(t, out, "10 records, 8 accepted, 1 malformed, 1 unknown severity, 2 filtered out")
	assert.Contains(t, out, "Chunks:   1 of 2 succeeded, 1 failed, 0 not processed")
	assert.Contains(t, out, "Covered:  2 of 3 findings narrated")
	assert.Contains(t, out, "Intro:    ok")
	assert.Contains(t, out, "Markup:   2 malformed constructs recovered")
	assert.NotContains(t, out, "Cancelled")
	assert.False(t, strings.HasSuffix(out, "\n"))

	empty := Summary{RequestID: "req-2", Style: "plain", RawRecords: 2, FilteredOut: 2}
	assert.NotContains(t, empty.String(), "Chunks:")
}
