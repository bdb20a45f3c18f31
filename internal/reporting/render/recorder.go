package render

import (
	"fmt"
	"io"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// Recorder is a Renderer that keeps the node sequence in memory. Its
// artifact is a one-line-per-node text dump.
type Recorder struct {
	Nodes  []schemas.DocumentNode
	Covers []schemas.CoverPage
	// FinalizeErr, when set, is returned by Finalize.
	FinalizeErr error

	cursor cursor
}

// NewRecorder creates an empty Recorder with its cursor at the top of a page.
func NewRecorder() *Recorder {
	r := &Recorder{}
	r.cursor.reset()
	return r
}

// SetCursorY moves the simulated cursor.
func (r *Recorder) SetCursorY(y float64) {
	r.cursor.y = y
}

func (r *Recorder) record(n schemas.DocumentNode) {
	r.Nodes = append(r.Nodes, n)
	r.cursor.advance(1)
}

func (r *Recorder) AddHeading(level int, text string) {
	r.record(schemas.HeadingNode(level, text))
}

func (r *Recorder) AddParagraph(runs ...schemas.TextRun) {
	r.record(schemas.ParagraphNode(runs...))
}

func (r *Recorder) AddBulletItem(label, text string) {
	r.record(schemas.BulletNode(label, text))
}

func (r *Recorder) AddColoredLabel(text string, color schemas.ColorClass) {
	r.record(schemas.ColoredLabelNode(text, color))
}

func (r *Recorder) AddCodeBlock(language, code string) {
	r.record(schemas.CodeBlockNode(language, code))
}

func (r *Recorder) PageBreak() {
	r.Nodes = append(r.Nodes, schemas.PageBreakNode())
	r.cursor.reset()
}

func (r *Recorder) AddCover(cover schemas.CoverPage) {
	r.Covers = append(r.Covers, cover)
	r.cursor.reset()
}

func (r *Recorder) CursorY() float64 {
	return r.cursor.y
}

func (r *Recorder) Finalize(w io.Writer) error {
	if r.FinalizeErr != nil {
		return r.FinalizeErr
	}
	for _, n := range r.Nodes {
		var err error
		switch n.Kind {
		case schemas.NodeHeading:
			_, err = fmt.Fprintf(w, "%s(%d): %s\n", n.Kind, n.Level, n.Text)
		case schemas.NodeBulletItem:
			_, err = fmt.Fprintf(w, "%s[%s]: %s\n", n.Kind, n.Label, n.Text)
		case schemas.NodeColoredLabel:
			_, err = fmt.Fprintf(w, "%s(%s): %s\n", n.Kind, n.Color, n.Text)
		case schemas.NodeCodeBlock:
			_, err = fmt.Fprintf(w, "%s(%s): %q\n", n.Kind, n.Language, n.Text)
		case schemas.NodePageBreak:
			_, err = fmt.Fprintf(w, "%s\n", n.Kind)
		default:
			_, err = fmt.Fprintf(w, "%s: %s\n", n.Kind, n.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
