package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// MarkdownRenderer writes the document as Markdown.
type MarkdownRenderer struct {
	opts   Options
	buf    bytes.Buffer
	cursor cursor
}

// NewMarkdownRenderer creates a Markdown renderer.
func NewMarkdownRenderer(opts Options) *MarkdownRenderer {
	m := &MarkdownRenderer{opts: opts}
	m.cursor.reset()
	return m
}

func (m *MarkdownRenderer) block(s string) {
	if m.buf.Len() > 0 {
		m.buf.WriteString("\n")
	}
	m.buf.WriteString(s)
	m.buf.WriteString("\n")
	m.cursor.advance(strings.Count(s, "\n") + 1)
}

func (m *MarkdownRenderer) AddCover(cover schemas.CoverPage) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s", cover.Title)
	if cover.Subtitle != "" {
		fmt.Fprintf(&b, "\n\n_%s_", cover.Subtitle)
	}
	if cover.Target != "" {
		fmt.Fprintf(&b, "\n\n**Target:** %s", cover.Target)
	}
	if cover.Date != "" {
		fmt.Fprintf(&b, "\n\n**Date:** %s", cover.Date)
	}
	m.block(b.String())
	m.PageBreak()
}

func (m *MarkdownRenderer) AddHeading(level int, text string) {
	level = min(max(level, 1), 3)
	// The cover owns the single top-level title.
	m.block(strings.Repeat("#", level+1) + " " + text)
}

func (m *MarkdownRenderer) AddParagraph(runs ...schemas.TextRun) {
	var b strings.Builder
	for _, r := range runs {
		if r.Bold && strings.TrimSpace(r.Text) != "" {
			b.WriteString("**" + r.Text + "**")
		} else {
			b.WriteString(r.Text)
		}
	}
	m.block(b.String())
}

func (m *MarkdownRenderer) AddBulletItem(label, text string) {
	if label != "" {
		m.block(fmt.Sprintf("- **%s:** %s", label, text))
		return
	}
	m.block("- " + text)
}

func (m *MarkdownRenderer) AddColoredLabel(text string, color schemas.ColorClass) {
	m.block(fmt.Sprintf("> **%s** `%s`", text, color))
}

func (m *MarkdownRenderer) AddCodeBlock(language, code string) {
	m.block("```" + language + "\n" + code + "\n```")
}

func (m *MarkdownRenderer) PageBreak() {
	m.block("---")
	m.cursor.reset()
}

func (m *MarkdownRenderer) CursorY() float64 {
	return m.cursor.y
}

func (m *MarkdownRenderer) Finalize(w io.Writer) error {
	_, err := w.Write(m.buf.Bytes())
	return err
}
