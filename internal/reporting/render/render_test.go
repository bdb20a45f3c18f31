package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// drive feeds one node of every kind to a renderer.
func drive(r schemas.Renderer) {
	if c, ok := r.(schemas.CoverRenderer); ok {
		c.AddCover(schemas.CoverPage{Title: "Security Audit", Target: "https://target.example", Date: "2025-03-01"})
	}
	r.AddHeading(1, "1. Findings")
	r.AddParagraph(schemas.TextRun{Text: "Plain "}, schemas.TextRun{Text: "bold", Bold: true}, schemas.TextRun{Text: " tail."})
	r.AddBulletItem("Impact", "Session theft.")
	r.AddBulletItem("", "Unlabelled item.")
	r.AddColoredLabel("CRITICAL: act today", schemas.ColorCritical)
	r.AddCodeBlock("go", "fmt.Println(1)")
	r.PageBreak()
	r.AddHeading(3, "Café notes")
}

func TestNew(t *testing.T) {
	t.Parallel()
	for _, format := range []string{"pdf", "PDF", "", "markdown", "md"} {
		r, err := New(format, Options{})
		require.NoError(t, err, format)
		assert.NotNil(t, r)
	}

	_, err := New("docx", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format: docx")

	assert.Equal(t, ".md", Extension("markdown"))
	assert.Equal(t, ".pdf", Extension("pdf"))
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	drive(r)

	require.Len(t, r.Nodes, 8)
	assert.Equal(t, schemas.HeadingNode(1, "1. Findings"), r.Nodes[0])
	assert.Equal(t, "Plain bold tail.", r.Nodes[1].Text)
	assert.Equal(t, schemas.NodePageBreak, r.Nodes[6].Kind)
	require.Len(t, r.Covers, 1)

	t.Run("cursor resets on page break", func(t *testing.T) {
		rec := NewRecorder()
		start := rec.CursorY()
		rec.AddParagraph(schemas.TextRun{Text: "x"})
		assert.Greater(t, rec.CursorY(), start)
		rec.PageBreak()
		assert.Equal(t, start, rec.CursorY())
	})

	t.Run("finalize dumps nodes", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, r.Finalize(&buf))
		assert.Contains(t, buf.String(), "heading(1): 1. Findings\n")
		assert.Contains(t, buf.String(), "bullet[Impact]: Session theft.\n")
		assert.Contains(t, buf.String(), "code_block(go): \"fmt.Println(1)\"\n")
	})

	t.Run("finalize error", func(t *testing.T) {
		rec := NewRecorder()
		rec.FinalizeErr = errors.New("disk full")
		assert.EqualError(t, rec.Finalize(&bytes.Buffer{}), "disk full")
	})
}

func TestMarkdownRenderer(t *testing.T) {
	t.Parallel()
	m := NewMarkdownRenderer(Options{Title: "Audit"})
	drive(m)

	var buf bytes.Buffer
	require.NoError(t, m.Finalize(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Security Audit\n"))
	assert.Contains(t, out, "**Target:** https://target.example")
	assert.Contains(t, out, "## 1. Findings\n")
	assert.Contains(t, out, "Plain **bold** tail.\n")
	assert.Contains(t, out, "- **Impact:** Session theft.\n")
	assert.Contains(t, out, "- Unlabelled item.\n")
	assert.Contains(t, out, "> **CRITICAL: act today** `critical`\n")
	assert.Contains(t, out, "```go\nfmt.Println(1)\n```\n")
	assert.Contains(t, out, "#### Café notes\n")
}

func TestPDFRenderer(t *testing.T) {
	t.Parallel()

	t.Run("renders a complete document", func(t *testing.T) {
		p := NewPDFRenderer(Options{Title: "Security Audit", Author: "scalpel-report"})
		drive(p)

		var buf bytes.Buffer
		require.NoError(t, p.Finalize(&buf))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	})

	t.Run("cursor is zero before the first page", func(t *testing.T) {
		p := NewPDFRenderer(Options{})
		assert.Equal(t, 0.0, p.CursorY())
		p.AddParagraph(schemas.TextRun{Text: "first"})
		assert.Greater(t, p.CursorY(), pageMargin)
	})

	t.Run("empty document still finalizes", func(t *testing.T) {
		p := NewPDFRenderer(Options{})
		var buf bytes.Buffer
		require.NoError(t, p.Finalize(&buf))
		assert.NotZero(t, buf.Len())
	})
}
