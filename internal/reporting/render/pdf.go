package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

const (
	pageMargin   = 15.0
	bottomMargin = 15.0
	bodyFont     = "Helvetica"
	codeFont     = "Courier"
	lineHeight   = 5.5
)

// headingStyle is the font size and spacing of each heading level.
var headingStyle = map[int]struct {
	size   float64
	before float64
}{
	1: {size: 15, before: 4},
	2: {size: 12.5, before: 3},
	3: {size: 11, before: 2},
}

// PDFRenderer lays the document out on A4 pages with fpdf. Errors are
// latched by the engine and reported by Finalize.
type PDFRenderer struct {
	pdf       *fpdf.Fpdf
	opts      Options
	tr        func(string) string
	coverPage int
}

// NewPDFRenderer creates an A4 portrait renderer.
func NewPDFRenderer(opts Options) *PDFRenderer {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}

	r := &PDFRenderer{
		pdf:  pdf,
		opts: opts,
		tr:   pdf.UnicodeTranslatorFromDescriptor(""),
	}
	pdf.SetHeaderFunc(r.header)
	pdf.SetFooterFunc(r.footer)
	return r
}

func (r *PDFRenderer) header() {
	if r.pdf.PageNo() == r.coverPage || r.opts.Title == "" {
		return
	}
	r.pdf.SetFont(bodyFont, "I", 8)
	r.pdf.SetTextColor(128, 128, 128)
	r.pdf.CellFormat(0, 8, r.tr(r.opts.Title), "", 1, "R", false, 0, "")
	r.pdf.Ln(2)
	r.resetText()
}

func (r *PDFRenderer) footer() {
	if r.pdf.PageNo() == r.coverPage {
		return
	}
	r.pdf.SetY(-bottomMargin)
	r.pdf.SetFont(bodyFont, "I", 8)
	r.pdf.SetTextColor(128, 128, 128)
	r.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", r.pdf.PageNo()), "", 0, "C", false, 0, "")
}

func (r *PDFRenderer) resetText() {
	r.pdf.SetFont(bodyFont, "", 10.5)
	r.pdf.SetTextColor(0, 0, 0)
}

// ensurePage opens the first page on demand.
func (r *PDFRenderer) ensurePage() {
	if r.pdf.PageNo() == 0 {
		r.pdf.AddPage()
		r.resetText()
	}
}

// AddCover lays out a title page. It must be called before any node.
func (r *PDFRenderer) AddCover(cover schemas.CoverPage) {
	// The header runs inside AddPage and must already see the cover.
	r.coverPage = r.pdf.PageNo() + 1
	r.pdf.AddPage()

	cr, cg, cb := schemas.ColorNeutral.RGB()
	r.pdf.SetFillColor(cr, cg, cb)
	w, _ := r.pdf.GetPageSize()
	r.pdf.Rect(0, 0, w, 70, "F")

	r.pdf.SetY(25)
	r.pdf.SetFont(bodyFont, "B", 22)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.MultiCell(0, 10, r.tr(cover.Title), "", "C", false)
	if cover.Subtitle != "" {
		r.pdf.SetFont(bodyFont, "", 13)
		r.pdf.MultiCell(0, 7, r.tr(cover.Subtitle), "", "C", false)
	}

	r.pdf.SetY(95)
	r.pdf.SetTextColor(cr, cg, cb)
	r.pdf.SetFont(bodyFont, "B", 12)
	if cover.Target != "" {
		r.pdf.MultiCell(0, 8, r.tr("Target: "+cover.Target), "", "C", false)
	}
	if cover.Date != "" {
		r.pdf.SetFont(bodyFont, "", 11)
		r.pdf.MultiCell(0, 8, r.tr("Date: "+cover.Date), "", "C", false)
	}

	r.pdf.AddPage()
	r.resetText()
}

func (r *PDFRenderer) AddHeading(level int, text string) {
	r.ensurePage()
	style, ok := headingStyle[level]
	if !ok {
		style = headingStyle[3]
	}
	cr, cg, cb := schemas.ColorNeutral.RGB()

	r.pdf.Ln(style.before)
	r.pdf.SetFont(bodyFont, "B", style.size)
	r.pdf.SetTextColor(cr, cg, cb)
	r.pdf.MultiCell(0, style.size*0.55, r.tr(text), "", "L", false)
	if level == 1 {
		y := r.pdf.GetY() + 1
		left, _, right, _ := r.pdf.GetMargins()
		w, _ := r.pdf.GetPageSize()
		r.pdf.SetDrawColor(cr, cg, cb)
		r.pdf.Line(left, y, w-right, y)
		r.pdf.Ln(3)
	}
	r.pdf.Ln(1)
	r.resetText()
}

func (r *PDFRenderer) AddParagraph(runs ...schemas.TextRun) {
	r.ensurePage()
	if strings.TrimSpace(schemas.PlainText(runs)) == "" {
		r.pdf.Ln(lineHeight)
		return
	}
	for _, run := range runs {
		style := ""
		if run.Bold {
			style = "B"
		}
		r.pdf.SetFont(bodyFont, style, 10.5)
		r.pdf.Write(lineHeight, r.tr(run.Text))
	}
	r.pdf.Ln(lineHeight + 2)
	r.resetText()
}

func (r *PDFRenderer) AddBulletItem(label, text string) {
	r.ensurePage()
	left, _, _, _ := r.pdf.GetMargins()
	r.pdf.SetX(left + 3)
	r.pdf.CellFormat(5, lineHeight, "-", "", 0, "L", false, 0, "")
	if label != "" {
		r.pdf.SetFont(bodyFont, "B", 10.5)
		r.pdf.Write(lineHeight, r.tr(label+": "))
		r.pdf.SetFont(bodyFont, "", 10.5)
	}
	r.pdf.Write(lineHeight, r.tr(text))
	r.pdf.Ln(lineHeight + 1)
}

func (r *PDFRenderer) AddColoredLabel(text string, color schemas.ColorClass) {
	r.ensurePage()
	cr, cg, cb := color.RGB()
	r.pdf.Ln(1)
	r.pdf.SetFillColor(cr, cg, cb)
	r.pdf.SetTextColor(255, 255, 255)
	r.pdf.SetFont(bodyFont, "B", 10.5)
	r.pdf.CellFormat(0, 8, r.tr(" "+text), "", 1, "L", true, 0, "")
	r.pdf.Ln(2)
	r.resetText()
}

func (r *PDFRenderer) AddCodeBlock(language, code string) {
	r.ensurePage()
	if language != "" {
		r.pdf.SetFont(codeFont, "I", 7.5)
		r.pdf.SetTextColor(110, 110, 110)
		r.pdf.CellFormat(0, 4, r.tr(language), "", 1, "L", false, 0, "")
	}
	r.pdf.SetFont(codeFont, "", 8.5)
	r.pdf.SetTextColor(30, 30, 30)
	r.pdf.SetFillColor(242, 242, 242)
	r.pdf.MultiCell(0, 4.5, r.tr(code), "", "L", true)
	r.pdf.Ln(3)
	r.resetText()
}

func (r *PDFRenderer) PageBreak() {
	r.pdf.AddPage()
	r.resetText()
}

// CursorY returns the vertical position in millimetres, or 0 before the
// first page.
func (r *PDFRenderer) CursorY() float64 {
	if r.pdf.PageNo() == 0 {
		return 0
	}
	return r.pdf.GetY()
}

// Finalize writes the PDF. Any error latched while laying out nodes is
// returned here.
func (r *PDFRenderer) Finalize(w io.Writer) error {
	r.ensurePage()
	if err := r.pdf.Error(); err != nil {
		return fmt.Errorf("pdf layout failed: %w", err)
	}
	if err := r.pdf.Output(w); err != nil {
		return fmt.Errorf("pdf output failed: %w", err)
	}
	return nil
}
