package schemas

// -- Document Schemas --

// NodeKind discriminates the DocumentNode variants.
type NodeKind int

const (
	NodeHeading NodeKind = iota
	NodeParagraph
	NodeBulletItem
	NodeColoredLabel
	NodeCodeBlock
	NodePageBreak
)

func (k NodeKind) String() string {
	switch k {
	case NodeHeading:
		return "heading"
	case NodeParagraph:
		return "paragraph"
	case NodeBulletItem:
		return "bullet"
	case NodeColoredLabel:
		return "colored_label"
	case NodeCodeBlock:
		return "code_block"
	case NodePageBreak:
		return "page_break"
	default:
		return "unknown"
	}
}

// ColorClass is the severity-associated color of a colored label.
type ColorClass string

const (
	ColorCritical ColorClass = "critical"
	ColorElevated ColorClass = "elevated"
	ColorModerate ColorClass = "moderate"
	ColorRobust   ColorClass = "robust"
	ColorNeutral  ColorClass = "neutral"
)

// RGB returns the display color of the class.
func (c ColorClass) RGB() (r, g, b int) {
	switch c {
	case ColorCritical:
		return 231, 76, 60
	case ColorElevated:
		return 230, 126, 34
	case ColorModerate:
		return 241, 196, 15
	case ColorRobust:
		return 39, 174, 96
	default:
		return 44, 62, 80
	}
}

// TextRun is a span of paragraph text with uniform emphasis.
type TextRun struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// DocumentNode is one structural element of an assembled document. Only the
// fields relevant to Kind are set:
//
//	Heading:      Level, Text
//	Paragraph:    Text, Runs
//	BulletItem:   Label (optional), Text
//	ColoredLabel: Text, Color
//	CodeBlock:    Language (optional), Text
//	PageBreak:    none
type DocumentNode struct {
	Kind     NodeKind   `json:"kind"`
	Level    int        `json:"level,omitempty"`
	Text     string     `json:"text,omitempty"`
	Label    string     `json:"label,omitempty"`
	Language string     `json:"language,omitempty"`
	Color    ColorClass `json:"color,omitempty"`
	Runs     []TextRun  `json:"runs,omitempty"`
}

// PlainText concatenates runs into the paragraph's plain text.
func PlainText(runs []TextRun) string {
	n := 0
	for _, r := range runs {
		n += len(r.Text)
	}
	buf := make([]byte, 0, n)
	for _, r := range runs {
		buf = append(buf, r.Text...)
	}
	return string(buf)
}

// HeadingNode, ParagraphNode and friends build well-formed nodes.

func HeadingNode(level int, text string) DocumentNode {
	return DocumentNode{Kind: NodeHeading, Level: level, Text: text}
}

func ParagraphNode(runs ...TextRun) DocumentNode {
	return DocumentNode{Kind: NodeParagraph, Text: PlainText(runs), Runs: runs}
}

func BulletNode(label, text string) DocumentNode {
	return DocumentNode{Kind: NodeBulletItem, Label: label, Text: text}
}

func ColoredLabelNode(text string, color ColorClass) DocumentNode {
	return DocumentNode{Kind: NodeColoredLabel, Text: text, Color: color}
}

func CodeBlockNode(language, code string) DocumentNode {
	return DocumentNode{Kind: NodeCodeBlock, Language: language, Text: code}
}

func PageBreakNode() DocumentNode {
	return DocumentNode{Kind: NodePageBreak}
}
