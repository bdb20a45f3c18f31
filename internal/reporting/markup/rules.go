package markup

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

var (
	fenceOpen    = regexp.MustCompile("^\x60\x60\x60")
	separator    = regexp.MustCompile(`^-{3,}$`)
	numberedH1   = regexp.MustCompile(`^(?:[IVX]+|\d+)\.\s`)
	hashH1       = regexp.MustCompile(`^#[^#]`)
	hashH3       = regexp.MustCompile(`^#{3,}\s*[^#\s]`)
	letterH2     = regexp.MustCompile(`^[A-Z]\.\s`)
	hashH2       = regexp.MustCompile(`^##[^#]`)
	subItem      = regexp.MustCompile(`^([a-z])\.\s+(.*)$`)
	bulletItem   = regexp.MustCompile(`^[-*]\s+(.*)$`)
	labelOutside = regexp.MustCompile(`^\*\*(.+?)\*\*\s*:\s*(.*)$`)
	labelInside  = regexp.MustCompile(`^\*\*(.+?):\s*\*\*\s*(.*)$`)
)

// rule is one row of the line classification table. Rules are evaluated in
// order and the first match wins; later rows are shadowed by earlier ones.
type rule struct {
	name  string
	match func(a *Assembler, line string) bool
	apply func(a *Assembler, line string)
	// flush reports whether a pending paragraph is emitted before apply.
	flush bool
}

// lineRules is the ordered classification table for lines outside a fence.
// The order is part of the markup contract.
var lineRules = []rule{
	{name: "fence", match: isFenceOpen, apply: (*Assembler).openFence, flush: true},
	{name: "separator", match: isSeparator, apply: (*Assembler).separator, flush: true},
	{name: "heading_1", match: isHeading1, apply: headingOf(1), flush: true},
	{name: "heading_3", match: isHeading3, apply: headingOf(3), flush: true},
	{name: "heading_2", match: isHeading2, apply: headingOf(2), flush: true},
	{name: "sub_item", match: isSubItem, apply: (*Assembler).subItem, flush: true},
	{name: "bullet", match: isBullet, apply: (*Assembler).bullet, flush: true},
	{name: "risk_label", match: (*Assembler).isRiskLabel, apply: (*Assembler).riskLabel, flush: true},
	{name: "inline_bold", match: hasBold, apply: (*Assembler).boldParagraph, flush: true},
	{name: "paragraph", match: always, apply: (*Assembler).accumulate},
}

func isFenceOpen(_ *Assembler, line string) bool { return fenceOpen.MatchString(line) }
func isSeparator(_ *Assembler, line string) bool { return separator.MatchString(line) }
func isSubItem(_ *Assembler, line string) bool   { return subItem.MatchString(line) }
func isBullet(_ *Assembler, line string) bool    { return bulletItem.MatchString(line) }
func always(_ *Assembler, _ string) bool         { return true }

func hasBold(_ *Assembler, line string) bool {
	return strings.Contains(line, boldDelimiter)
}

func isHeading1(_ *Assembler, line string) bool {
	return numberedH1.MatchString(line) || hashH1.MatchString(line)
}

func isHeading3(_ *Assembler, line string) bool {
	return hashH3.MatchString(line)
}

func isHeading2(_ *Assembler, line string) bool {
	return letterH2.MatchString(line) || hashH2.MatchString(line)
}

func (a *Assembler) isRiskLabel(line string) bool {
	if len([]rune(line)) >= a.opts.LabelMaxLength {
		return false
	}
	_, ok := matchKeyword(a.opts.Keywords, line)
	return ok
}

// -- Rule handlers --

func headingOf(level int) func(a *Assembler, line string) {
	return func(a *Assembler, line string) {
		text := stripEmphasis(strings.TrimLeft(line, "#"))
		a.emit(schemas.HeadingNode(level, text))
	}
}

func (a *Assembler) separator(string) {
	if y := a.r.CursorY(); y > a.opts.PageBreakThreshold {
		a.emit(schemas.PageBreakNode())
		return
	}
	a.logger.Debug("Ignoring separator near top of page")
}

func (a *Assembler) subItem(line string) {
	m := subItem.FindStringSubmatch(line)
	a.emit(schemas.BulletNode(m[1], stripEmphasis(m[2])))
}

func (a *Assembler) bullet(line string) {
	content := bulletItem.FindStringSubmatch(line)[1]
	for _, re := range []*regexp.Regexp{labelInside, labelOutside} {
		if m := re.FindStringSubmatch(content); m != nil {
			label := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[1]), ":"))
			a.emit(schemas.BulletNode(label, stripEmphasis(m[2])))
			return
		}
	}
	a.emit(schemas.BulletNode("", stripEmphasis(content)))
}

func (a *Assembler) riskLabel(line string) {
	color, _ := matchKeyword(a.opts.Keywords, line)
	text := strings.TrimSpace(strings.Trim(stripEmphasis(line), "[]"))
	a.emit(schemas.ColoredLabelNode(text, color))
}

func (a *Assembler) boldParagraph(line string) {
	runs, unmatched := splitBold(line)
	if unmatched {
		a.degrade(DegradationUnmatchedBold, line)
	}
	a.emit(schemas.ParagraphNode(runs...))
}

func (a *Assembler) accumulate(line string) {
	a.paragraph = append(a.paragraph, line)
	a.state = StateParagraph
}
