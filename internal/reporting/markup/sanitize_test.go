package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"ascii passes through", "GET /login?user=admin", "GET /login?user=admin"},
		{"latin-1 passes through", "S\u00e9curit\u00e9 \u00e9lev\u00e9e, fa\u00e7ade", "S\u00e9curit\u00e9 \u00e9lev\u00e9e, fa\u00e7ade"},
		{"curly quotes", "\u201cquoted\u201d and \u2018single\u2019", `"quoted" and 'single'`},
		{"dashes", "a\u2013b\u2014c\u2212d", "a-b-c-d"},
		{"ellipsis", "wait\u2026", "wait..."},
		{"bullet glyph", "\u2022 item", "- item"},
		{"non-breaking space", "10\u00a0ms", "10 ms"},
		{"zero-width characters", "pass\u200bword\ufeff", "password"},
		{"arrows", "input \u2192 output", "input -> output"},
		{"tabs", "\tindented", "    indented"},
		{"control characters", "bell\x07 and null\x00", "bell and null"},
		{"heading emoji dropped", "\U0001F6E1\ufe0f Overview \U0001F3AF", " Overview "},
		{"other emoji fall back", "\U0001F512 Locked", "? Locked"},
		{"symbol falls back without its variation selector", "\u26a0\ufe0f Warning", "? Warning"},
		{"combining sequences compose", "e\u0301te\u0301", "\u00e9t\u00e9"},
		{"uncomposable combining mark falls back", "t\u0301", "t?"},
		{"private use falls back", "key\ue000", "key?"},
		{"diacritics stripped outside latin-1", "\u0160koda \u0141\u00f3d\u017a", "Skoda ?\u00f3dz"},
		{"unrepresentable letters fall back", "\u0416\u0443\u043a", "???"},
		{"cjk falls back", "\u6f0f\u6d1e", "??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitize_OutputIsEncodable(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"Niveau de risque : PR\u00c9OCCUPANT \U0001F6A8",
		"Αθήνα — “mixed” …",
		string([]byte{0xff, 0xfe, 'o', 'k'}),
	}
	for _, in := range inputs {
		for _, r := range Sanitize(in) {
			assert.True(t, encodable(r), "rune %U from %q", r, in)
		}
	}
}

func TestSplitBold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		expected  []schemas.TextRun
		unmatched bool
	}{
		{"no delimiters", "plain", []schemas.TextRun{{Text: "plain"}}, false},
		{"leading bold", "**Impact** is high", []schemas.TextRun{{Text: "Impact", Bold: true}, {Text: " is high"}}, false},
		{"empty bold pair", "a****b", []schemas.TextRun{{Text: "ab"}}, false},
		{"unmatched trailing", "a **b", []schemas.TextRun{{Text: "a b"}}, true},
		{"three delimiters", "**a** b **c", []schemas.TextRun{{Text: "a", Bold: true}, {Text: " b c"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, unmatched := splitBold(tt.input)
			assert.Equal(t, tt.expected, runs)
			assert.Equal(t, tt.unmatched, unmatched)
		})
	}
}

func TestMatchKeyword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line  string
		color schemas.ColorClass
		ok    bool
	}{
		{"Critical exposure", schemas.ColorCritical, true},
		{"A correction s'impose ce jour", schemas.ColorCritical, true},
		{"Posture: concerning", schemas.ColorElevated, true},
		{"Moderate risk overall", schemas.ColorModerate, true},
		{"Satisfactory hardening", schemas.ColorRobust, true},
		{"Moderate, but Critical in places", schemas.ColorCritical, true},
		{"Robustness review", "", false},
		{"Status: OK", schemas.ColorRobust, true},
		{"Tokens are revoked", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		color, ok := matchKeyword(DefaultKeywords, tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.color, color, tt.line)
	}
}
