// Package render implements the document rendering collaborators: a PDF
// engine, a Markdown writer and an in-memory recorder.
package render

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// Supported output formats.
const (
	FormatPDF      = "pdf"
	FormatMarkdown = "markdown"
)

// Options configure a renderer for one document.
type Options struct {
	// Title is printed in the running header.
	Title  string
	Author string
}

// New creates a renderer for the given format.
func New(format string, opts Options) (schemas.Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatPDF, "":
		return NewPDFRenderer(opts), nil
	case FormatMarkdown, "md":
		return NewMarkdownRenderer(opts), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Extension returns the conventional file extension of a format.
func Extension(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md":
		return ".md"
	default:
		return ".pdf"
	}
}

// cursor simulates vertical layout for renderers without real pages, in
// millimetres like the PDF engine.
type cursor struct {
	y float64
}

const (
	simTopMargin  = 20.0
	simLineHeight = 6.0
)

func (c *cursor) advance(lines int) {
	if c.y < simTopMargin {
		c.y = simTopMargin
	}
	c.y += float64(lines) * simLineHeight
}

func (c *cursor) reset() {
	c.y = simTopMargin
}
