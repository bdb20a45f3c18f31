// Package markup turns generated narrative text into document nodes. It
// parses a small line-oriented markup with a three-state machine and drives
// a schemas.Renderer with the result.
package markup

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// State is the parser state between lines.
type State int

const (
	StateIdle State = iota
	StateParagraph
	StateCodeFence
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateParagraph:
		return "ACCUMULATING_PARAGRAPH"
	case StateCodeFence:
		return "INSIDE_CODE_FENCE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DegradationKind classifies malformed markup the assembler recovered from.
type DegradationKind string

const (
	DegradationUnterminatedFence DegradationKind = "unterminated_fence"
	DegradationUnmatchedBold     DegradationKind = "unmatched_bold"
	DegradationEmptyFragment     DegradationKind = "empty_fragment"
)

// Degradation records one recovery from malformed markup. It is never fatal.
type Degradation struct {
	Kind DegradationKind
	Line string
}

func (d Degradation) Error() string {
	if d.Line == "" {
		return string(d.Kind)
	}
	return fmt.Sprintf("%s: %q", d.Kind, d.Line)
}

// Options tune the thresholds of the classification rules.
type Options struct {
	// PageBreakThreshold is the cursor position a separator must be past
	// to produce a page break.
	PageBreakThreshold float64
	// LabelMaxLength bounds, in runes, the lines eligible as risk labels.
	LabelMaxLength int
	// LanguageTagMaxLength bounds, in runes, a code fence language tag.
	LanguageTagMaxLength int
	Keywords             []KeywordClass
}

// DefaultOptions returns the standard thresholds, in millimetres for the
// page break.
func DefaultOptions() Options {
	return Options{
		PageBreakThreshold:   40,
		LabelMaxLength:       80,
		LanguageTagMaxLength: 15,
		Keywords:             DefaultKeywords,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageBreakThreshold <= 0 {
		o.PageBreakThreshold = d.PageBreakThreshold
	}
	if o.LabelMaxLength <= 0 {
		o.LabelMaxLength = d.LabelMaxLength
	}
	if o.LanguageTagMaxLength <= 0 {
		o.LanguageTagMaxLength = d.LanguageTagMaxLength
	}
	if len(o.Keywords) == 0 {
		o.Keywords = d.Keywords
	}
	return o
}

// fence accumulates the content of an open code fence.
type fence struct {
	language string
	lines    []string
	// awaitingTag is set until the first non-blank line after the opening
	// delimiter has been inspected.
	awaitingTag bool
	// tag holds a language tag candidate until a further non-blank line
	// confirms it. A fence that closes on the candidate keeps it as code.
	tag        string
	tagPending bool
}

// Assembler parses narrative fragments and emits nodes to a renderer. It
// holds the cursor state of one document and is not safe for concurrent
// use; create one per report.
type Assembler struct {
	r      schemas.Renderer
	opts   Options
	rules  []rule
	logger *zap.Logger

	state     State
	paragraph []string
	fence     fence

	emitted      []schemas.DocumentNode
	degradations []Degradation
}

// NewAssembler creates an Assembler that drives r.
func NewAssembler(r schemas.Renderer, opts Options, logger *zap.Logger) *Assembler {
	return &Assembler{
		r:      r,
		opts:   opts.withDefaults(),
		rules:  lineRules,
		logger: logger.Named("markup_assembler"),
		state:  StateIdle,
	}
}

// State returns the current parser state.
func (a *Assembler) State() State {
	return a.state
}

// Degradations returns every recovery made so far, across fragments.
func (a *Assembler) Degradations() []Degradation {
	return a.degradations
}

// Assemble parses one fragment and returns the nodes it emitted. The
// fragment is closed at the end of text: a pending paragraph is flushed and
// an unterminated fence still yields its code block. A fragment with no
// content yields a single empty paragraph.
func (a *Assembler) Assemble(text string) []schemas.DocumentNode {
	a.emitted = nil

	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, raw := range strings.Split(text, "\n") {
		a.feed(Sanitize(raw))
	}
	a.finish()

	if len(a.emitted) == 0 {
		a.degrade(DegradationEmptyFragment, "")
		a.emit(schemas.ParagraphNode(schemas.TextRun{}))
	}
	return a.emitted
}

// Heading emits a heading directly, bypassing line classification. It is
// used for structure the caller owns, such as section titles.
func (a *Assembler) Heading(level int, text string) {
	a.emit(schemas.HeadingNode(level, Sanitize(strings.Join(strings.Fields(text), " "))))
}

// Plain emits text as a single paragraph without classifying it, so
// diagnostic text can never be mistaken for a directive.
func (a *Assembler) Plain(text string) {
	a.emit(schemas.ParagraphNode(schemas.TextRun{Text: Sanitize(strings.Join(strings.Fields(text), " "))}))
}

// PageBreak emits an unconditional page break.
func (a *Assembler) PageBreak() {
	a.emit(schemas.PageBreakNode())
}

func (a *Assembler) feed(line string) {
	if a.state == StateCodeFence {
		a.fenceLine(line)
		return
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		a.flushParagraph()
		return
	}
	for _, r := range a.rules {
		if !r.match(a, trimmed) {
			continue
		}
		if r.flush {
			a.flushParagraph()
		}
		r.apply(a, trimmed)
		return
	}
}

func (a *Assembler) finish() {
	if a.state == StateCodeFence {
		a.degrade(DegradationUnterminatedFence, "")
		a.closeFence()
	}
	a.flushParagraph()
}

func (a *Assembler) flushParagraph() {
	if len(a.paragraph) == 0 {
		return
	}
	text := strings.Join(a.paragraph, " ")
	a.paragraph = a.paragraph[:0]
	a.state = StateIdle
	a.emit(schemas.ParagraphNode(schemas.TextRun{Text: text}))
}

// -- Code fences --

const fenceDelimiter = "\x60\x60\x60"

func (a *Assembler) openFence(line string) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, fenceDelimiter))
	a.state = StateCodeFence
	a.fence = fence{awaitingTag: true}

	// A fence opened and closed on the same line.
	if len(rest) >= len(fenceDelimiter) && strings.HasSuffix(rest, fenceDelimiter) {
		a.fence.awaitingTag = false
		a.fence.lines = []string{strings.TrimSpace(strings.TrimSuffix(rest, fenceDelimiter))}
		a.closeFence()
		return
	}
	if rest != "" {
		a.inspectFirstLine(rest)
	}
}

func (a *Assembler) fenceLine(line string) {
	if strings.TrimSpace(line) == fenceDelimiter {
		a.closeFence()
		return
	}
	blank := strings.TrimSpace(line) == ""
	switch {
	case a.fence.awaitingTag:
		if !blank {
			a.inspectFirstLine(line)
		}
		return
	case a.fence.tagPending:
		if blank {
			return
		}
		a.fence.language = a.fence.tag
		a.fence.tag, a.fence.tagPending = "", false
	}
	a.fence.lines = append(a.fence.lines, line)
}

// inspectFirstLine treats a short, whitespace-free first line as a language
// tag candidate and anything else as the first line of code.
func (a *Assembler) inspectFirstLine(line string) {
	a.fence.awaitingTag = false
	candidate := strings.TrimSpace(line)
	if len([]rune(candidate)) < a.opts.LanguageTagMaxLength && !strings.ContainsAny(candidate, " \t") {
		a.fence.tag, a.fence.tagPending = candidate, true
		return
	}
	a.fence.lines = append(a.fence.lines, line)
}

func (a *Assembler) closeFence() {
	if a.fence.tagPending {
		a.fence.lines = append([]string{a.fence.tag}, a.fence.lines...)
	}
	code := strings.TrimRight(strings.Join(a.fence.lines, "\n"), " \n")
	a.emit(schemas.CodeBlockNode(a.fence.language, code))
	a.fence = fence{}
	a.state = StateIdle
}

// -- Emission --

func (a *Assembler) emit(node schemas.DocumentNode) {
	switch node.Kind {
	case schemas.NodeHeading:
		a.r.AddHeading(node.Level, node.Text)
	case schemas.NodeParagraph:
		a.r.AddParagraph(node.Runs...)
	case schemas.NodeBulletItem:
		a.r.AddBulletItem(node.Label, node.Text)
	case schemas.NodeColoredLabel:
		a.r.AddColoredLabel(node.Text, node.Color)
	case schemas.NodeCodeBlock:
		a.r.AddCodeBlock(node.Language, node.Text)
	case schemas.NodePageBreak:
		a.r.PageBreak()
	}
	a.emitted = append(a.emitted, node)
}

func (a *Assembler) degrade(kind DegradationKind, line string) {
	d := Degradation{Kind: kind, Line: line}
	a.degradations = append(a.degradations, d)
	a.logger.Debug("Recovered from malformed markup", zap.String("kind", string(kind)), zap.String("line", line))
}
