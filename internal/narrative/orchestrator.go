package narrative

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// ErrTotalFailure is returned when every chunk's generation call failed.
var ErrTotalFailure = errors.New("narrative generation failed for every chunk")

// Job describes one report's worth of generation work.
type Job struct {
	Target string
	// Date is the report date as shown to the collaborator.
	Date              string
	Marker            string
	SeverityBreakdown string

	Body *TaskTemplate
	// Intro is optional. It covers no findings.
	Intro  *TaskTemplate
	Chunks []schemas.Chunk
}

// findingCount is the number of findings across all chunks.
func (j Job) findingCount() int {
	n := 0
	for _, c := range j.Chunks {
		n += len(c.Findings)
	}
	return n
}

// Outcome is the result of a run. Fragments holds one entry per chunk, in
// chunk order, whatever its status.
type Outcome struct {
	Intro     *schemas.NarrativeFragment
	Fragments []schemas.NarrativeFragment

	Succeeded    int
	Failed       int
	NotProcessed int
	// Cancelled is set when the run stopped early at a chunk boundary.
	Cancelled bool
}

// Partial reports whether any chunk was not narrated.
func (o *Outcome) Partial() bool {
	return o.Failed > 0 || o.NotProcessed > 0
}

// FindingsCovered counts the findings of successful chunks.
func (o *Outcome) FindingsCovered() int {
	n := 0
	for _, f := range o.Fragments {
		if f.Status == schemas.FragmentOK {
			n += f.EndIndex - f.StartIndex + 1
		}
	}
	return n
}

// Orchestrator issues generation calls strictly in chunk order, one at a
// time. It holds no per-report state and may be reused sequentially.
type Orchestrator struct {
	generator Generator
	pacer     Pacer
	timeout   time.Duration
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator. timeout bounds each call; zero
// means no bound beyond the collaborator's own.
func NewOrchestrator(generator Generator, pacer Pacer, timeout time.Duration, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		generator: generator,
		pacer:     pacer,
		timeout:   timeout,
		logger:    logger.Named("narrative_orchestrator"),
	}
}

// Run narrates the job. A chunk failure is recorded and the run continues.
// Cancellation of ctx is honored between calls only: a call in flight runs
// to completion, and the remaining chunks are marked not processed.
//
// The returned error is ErrTotalFailure when no chunk succeeded and the run
// was not cancelled; the Outcome is returned in every case.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Outcome, error) {
	if job.Body == nil {
		return nil, errors.New("narrative job has no body task")
	}

	out := &Outcome{Fragments: make([]schemas.NarrativeFragment, 0, len(job.Chunks))}
	base := PromptData{
		Target:            job.Target,
		Date:              job.Date,
		Marker:            job.Marker,
		FindingCount:      job.findingCount(),
		SeverityBreakdown: job.SeverityBreakdown,
	}

	if job.Intro != nil {
		intro := o.runIntro(ctx, job.Intro, base)
		out.Intro = &intro
		if intro.Status == schemas.FragmentNotProcessed {
			out.Cancelled = true
		}
	}

	for _, chunk := range job.Chunks {
		if out.Cancelled || !o.proceed(ctx) {
			out.Cancelled = true
			out.Fragments = append(out.Fragments, fragmentFor(chunk, schemas.FragmentNotProcessed))
			out.NotProcessed++
			continue
		}

		frag := o.runChunk(ctx, job.Body, base, chunk)
		out.Fragments = append(out.Fragments, frag)
		if frag.Status == schemas.FragmentOK {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}

	if out.Cancelled {
		o.logger.Warn("Narrative generation cancelled",
			zap.Int("succeeded", out.Succeeded),
			zap.Int("failed", out.Failed),
			zap.Int("not_processed", out.NotProcessed),
		)
	}

	if len(job.Chunks) > 0 && out.Succeeded == 0 && !out.Cancelled {
		return out, ErrTotalFailure
	}
	return out, nil
}

// proceed checks for cancellation and then waits for the pacer.
func (o *Orchestrator) proceed(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := o.pacer.Wait(ctx); err != nil {
		o.logger.Debug("Pacing wait interrupted", zap.Error(err))
		return false
	}
	return true
}

func (o *Orchestrator) runIntro(ctx context.Context, task *TaskTemplate, data PromptData) schemas.NarrativeFragment {
	frag := schemas.NarrativeFragment{ChunkRef: schemas.IntroChunkRef}
	if !o.proceed(ctx) {
		frag.Status = schemas.FragmentNotProcessed
		return frag
	}

	text, err := o.generate(ctx, task, data)
	if err != nil {
		genErr := &GenerationError{Chunk: schemas.IntroChunkRef, Err: err}
		o.logger.Warn("Introduction generation failed", zap.Error(err))
		frag.Status = schemas.FragmentFailed
		frag.ErrorDetail = genErr.Error()
		return frag
	}
	frag.Status = schemas.FragmentOK
	frag.Text = text
	return frag
}

func (o *Orchestrator) runChunk(ctx context.Context, task *TaskTemplate, base PromptData, chunk schemas.Chunk) schemas.NarrativeFragment {
	start := time.Now()
	frag := fragmentFor(chunk, schemas.FragmentOK)

	data := base
	data.StartIndex = chunk.StartIndex
	data.EndIndex = chunk.EndIndex()
	data.Count = len(chunk.Findings)

	payload, err := EncodeChunk(chunk)
	if err == nil {
		data.Findings = payload
		frag.Text, err = o.generate(ctx, task, data)
	}
	if err != nil {
		genErr := &GenerationError{Chunk: chunk.Index, StartIndex: chunk.StartIndex, EndIndex: chunk.EndIndex(), Err: err}
		o.logger.Warn("Chunk generation failed",
			zap.Int("chunk", chunk.Index),
			zap.Int("start_index", chunk.StartIndex),
			zap.Error(err),
		)
		frag.Status = schemas.FragmentFailed
		frag.Text = ""
		frag.ErrorDetail = genErr.Error()
		return frag
	}

	o.logger.Info("Chunk narrated",
		zap.Int("chunk", chunk.Index),
		zap.Int("start_index", chunk.StartIndex),
		zap.Int("end_index", chunk.EndIndex()),
		zap.Duration("duration", time.Since(start)),
	)
	return frag
}

// generate renders and issues one call. The call is detached from ctx's
// cancellation so that a started chunk completes.
func (o *Orchestrator) generate(ctx context.Context, task *TaskTemplate, data PromptData) (string, error) {
	prompt, err := task.Render(data)
	if err != nil {
		return "", err
	}

	callCtx := context.WithoutCancel(ctx)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.timeout)
		defer cancel()
	}

	text, err := o.generator.Generate(callCtx, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", task.Name(), err)
	}
	return text, nil
}

func fragmentFor(chunk schemas.Chunk, status schemas.FragmentStatus) schemas.NarrativeFragment {
	return schemas.NarrativeFragment{
		ChunkRef:   chunk.Index,
		StartIndex: chunk.StartIndex,
		EndIndex:   chunk.EndIndex(),
		Status:     status,
	}
}
