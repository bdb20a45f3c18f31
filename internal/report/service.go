// Package report runs a report request end to end: load raw findings,
// normalize and batch them, narrate each chunk and assemble the document.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
	"github.com/xkilldash9x/scalpel-report/internal/config"
	"github.com/xkilldash9x/scalpel-report/internal/narrative"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/markup"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/render"
	"github.com/xkilldash9x/scalpel-report/internal/reporting/style"
	"github.com/xkilldash9x/scalpel-report/internal/results"
)

// Request is one report to produce.
type Request struct {
	Source schemas.FindingSource
	Target string
	// Style is a catalog name; empty selects the configured default.
	Style      string
	Severities []string
	// ChunkSize overrides the style's chunk size when positive.
	ChunkSize int
	// Format selects the renderer when Renderer is nil.
	Format   string
	Renderer schemas.Renderer
}

// Result is the outcome of a request. Artifact is set only for the success
// and partial statuses.
type Result struct {
	Status   Status
	Summary  Summary
	Findings []schemas.CanonicalFinding
	Artifact []byte
	// Reason explains an empty or failed status.
	Reason error
}

// Service produces reports. It holds no per-request state: every request
// builds its own pipeline, orchestrator and assembler.
type Service struct {
	cfg     config.ReportConfig
	catalog *style.Catalog
	client  schemas.LLMClient
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a report service.
func NewService(cfg config.ReportConfig, catalog *style.Catalog, client schemas.LLMClient, logger *zap.Logger) *Service {
	return &Service{
		cfg:     cfg,
		catalog: catalog,
		client:  client,
		logger:  logger.Named("report_service"),
		now:     time.Now,
	}
}

// Generate runs one request. The returned error is non-nil exactly when the
// status is StatusFailure; the Result is returned in every case.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.NewString()
	logger := s.logger.With(zap.String("request_id", requestID))
	res := &Result{Summary: Summary{RequestID: requestID}}

	fail := func(err error) (*Result, error) {
		res.Status = StatusFailure
		res.Reason = err
		res.Artifact = nil
		logger.Error("Report generation failed", zap.Error(err))
		return res, err
	}

	styleName := req.Style
	if styleName == "" {
		styleName = s.cfg.DefaultStyle
	}
	st, err := s.catalog.Get(styleName)
	if err != nil {
		return fail(err)
	}
	res.Summary.Style = st.Name

	chunkSize := st.ChunkSize
	if req.ChunkSize != 0 {
		chunkSize = req.ChunkSize
	}
	logger.Info("Starting report generation",
		zap.String("style", st.Name),
		zap.String("target", req.Target),
		zap.Int("chunk_size", chunkSize),
	)

	renderer := req.Renderer
	if renderer == nil {
		renderer, err = render.New(req.Format, render.Options{Title: st.Title, Author: s.cfg.Author})
		if err != nil {
			return fail(err)
		}
	}

	// -- Findings --

	if req.Source == nil {
		return fail(errors.New("report request has no finding source"))
	}
	raws, err := req.Source.RawFindings(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to load findings: %w", err))
	}

	filter, ignored := results.NewSeverityFilter(req.Severities)
	if len(ignored) > 0 {
		logger.Warn("Ignoring unknown severities in filter", zap.Strings("values", ignored))
	}
	diag := results.NewDiagnostics()
	pipeline := results.NewPipeline(results.PipelineConfig{
		MaxLocations:   s.cfg.MaxLocations,
		MaxDescription: s.cfg.MaxDescription,
	}, logger)
	findings, err := pipeline.Process(ctx, raws, filter, diag)
	s.fillDiagnostics(&res.Summary, diag, ignored)
	if err != nil {
		return fail(fmt.Errorf("failed to process findings: %w", err))
	}
	res.Findings = findings
	res.Summary.Findings = len(findings)

	if len(findings) == 0 {
		res.Status = StatusEmpty
		res.Reason = ErrNoFindings
		logger.Info("Nothing to report", zap.Int("raw_records", len(raws)))
		return res, nil
	}

	chunks, err := results.Batch(findings, chunkSize)
	if err != nil {
		return fail(err)
	}
	res.Summary.Chunks = len(chunks)

	// -- Narrative --

	job, err := s.buildJob(st, req.Target, findings, chunks)
	if err != nil {
		return fail(err)
	}
	orchestrator := narrative.NewOrchestrator(
		narrative.NewLLMGenerator(s.client, st.FinalMarker, schemas.GenerationOptions{}),
		narrative.NewRatePacer(s.cfg.PacingDelay),
		s.cfg.GenerationTimeout,
		logger,
	)
	outcome, err := orchestrator.Run(ctx, job)
	if outcome != nil {
		fillOutcome(&res.Summary, outcome)
	}
	if err != nil {
		if errors.Is(err, narrative.ErrTotalFailure) {
			return fail(fmt.Errorf("%w (%d chunks)", err, len(chunks)))
		}
		return fail(err)
	}

	// -- Document --

	artifact, degradations, err := s.assemble(renderer, req.Target, st, findings, outcome)
	res.Summary.Degradations = degradations
	if err != nil {
		return fail(err)
	}
	res.Artifact = artifact

	res.Status = StatusSuccess
	if outcome.Partial() {
		res.Status = StatusPartial
	}
	logger.Info("Report generation complete",
		zap.String("status", string(res.Status)),
		zap.Int("findings", len(findings)),
		zap.Int("covered", outcome.FindingsCovered()),
		zap.Int("bytes", len(artifact)),
	)
	return res, nil
}

func (s *Service) fillDiagnostics(sum *Summary, diag *results.Diagnostics, ignored []string) {
	sum.RawRecords = diag.Total
	sum.Accepted = diag.Accepted
	sum.Malformed = diag.Malformed
	sum.UnknownSeverity = diag.UnknownTotal()
	sum.FilteredOut = diag.FilteredOut
	sum.Merged = diag.Merged
	sum.IgnoredSeverities = ignored
}

func fillOutcome(sum *Summary, out *narrative.Outcome) {
	sum.ChunksSucceeded = out.Succeeded
	sum.ChunksFailed = out.Failed
	sum.ChunksNotProcessed = out.NotProcessed
	sum.FindingsCovered = out.FindingsCovered()
	sum.Cancelled = out.Cancelled
	if out.Intro != nil {
		sum.IntroStatus = out.Intro.Status
	}
}

func profileOf(a style.Agent) narrative.AgentProfile {
	return narrative.AgentProfile{Role: a.Role, Goal: a.Goal, Backstory: a.Backstory}
}

func (s *Service) buildJob(st style.Style, target string, findings []schemas.CanonicalFinding, chunks []schemas.Chunk) (narrative.Job, error) {
	body, err := narrative.NewTaskTemplate(st.Name+".body", profileOf(st.Body), st.Body.Task, st.ModelTier())
	if err != nil {
		return narrative.Job{}, err
	}
	job := narrative.Job{
		Target:            target,
		Date:              s.now().Format("2006-01-02"),
		Marker:            st.FinalMarker,
		SeverityBreakdown: severityBreakdown(findings),
		Body:              body,
		Chunks:            chunks,
	}
	if st.Intro != nil {
		job.Intro, err = narrative.NewTaskTemplate(st.Name+".intro", profileOf(*st.Intro), st.Intro.Task, st.ModelTier())
		if err != nil {
			return narrative.Job{}, err
		}
	}
	return job, nil
}

// severityBreakdown lists the non-zero severity counts in ranking order.
func severityBreakdown(findings []schemas.CanonicalFinding) string {
	counts := results.CountBySeverity(findings)
	var parts []string
	for _, sev := range schemas.Severities {
		if n := counts[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", sev, n))
		}
	}
	return strings.Join(parts, ", ")
}

// assemble lays the document out and finalizes it into memory, so a render
// failure never leaves a partial artifact behind.
func (s *Service) assemble(renderer schemas.Renderer, target string, st style.Style, findings []schemas.CanonicalFinding, out *narrative.Outcome) ([]byte, int, error) {
	asm := markup.NewAssembler(renderer, markup.Options{
		PageBreakThreshold:   s.cfg.PageBreakThreshold,
		LabelMaxLength:       s.cfg.LabelMaxLength,
		LanguageTagMaxLength: s.cfg.LanguageTagMaxLength,
	}, s.logger)

	if cr, ok := renderer.(schemas.CoverRenderer); ok {
		cr.AddCover(schemas.CoverPage{
			Title:    st.Title,
			Subtitle: fmt.Sprintf("%d findings (%s)", len(findings), severityBreakdown(findings)),
			Target:   target,
			Date:     s.now().Format("2006-01-02"),
		})
	}

	if out.Intro != nil {
		if st.Sections.Intro != "" {
			asm.Heading(1, st.Sections.Intro)
		}
		switch out.Intro.Status {
		case schemas.FragmentOK:
			asm.Assemble(out.Intro.Text)
		case schemas.FragmentFailed:
			asm.Heading(3, "[Introduction generation failed]")
			asm.Plain(out.Intro.ErrorDetail)
		default:
			asm.Heading(3, "[Introduction not processed: report cancelled]")
		}
		if st.PagePerSection {
			asm.PageBreak()
		}
	}

	if st.Sections.Findings != "" {
		asm.Heading(1, st.Sections.Findings)
	}
	for _, frag := range out.Fragments {
		switch frag.Status {
		case schemas.FragmentOK:
			asm.Assemble(frag.Text)
		case schemas.FragmentFailed:
			asm.Heading(3, fmt.Sprintf("[Generation failed for findings %d-%d]", frag.StartIndex, frag.EndIndex))
			asm.Plain(frag.ErrorDetail)
		default:
			asm.Heading(3, fmt.Sprintf("[Findings %d-%d not processed: report cancelled]", frag.StartIndex, frag.EndIndex))
		}
	}

	if strings.TrimSpace(st.Footer) != "" {
		asm.Assemble(st.Footer)
	}

	degradations := len(asm.Degradations())
	var buf bytes.Buffer
	if err := renderer.Finalize(&buf); err != nil {
		return nil, degradations, &RenderError{Err: err}
	}
	return buf.Bytes(), degradations, nil
}
