package markup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Fallback replaces characters the rendering repertoire cannot hold.
const Fallback = '?'

// typography maps common typographic characters onto their plain forms.
var typography = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u201b", "'",
	"\u201c", "\"", "\u201d", "\"", "\u201e", "\"", "\u201f", "\"",
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "-", "\u2015", "-", "\u2212", "-",
	"\u2026", "...",
	"\u2022", "-", "\u25cf", "-", "\u25aa", "-", "\u25e6", "-", "\u2023", "-", "\u2043", "-", "\u25a0", "-",
	"\u00a0", " ", "\u2007", " ", "\u2009", " ", "\u200a", " ", "\u202f", " ",
	"\u200b", "", "\u200d", "", "\ufeff", "",
	"\u2192", "->", "\u2190", "<-", "\u2264", "<=", "\u2265", ">=",
	"\t", "    ",
)

// decorations are the section emoji generated narratives open headings
// with. They are dropped rather than replaced.
var decorations = map[rune]bool{
	'\U0001F6E1': true, // shield
	'\U0001F6A8': true, // rotating light
	'\U0001F3AF': true, // direct hit
	'\U0001F6E0': true, // hammer and wrench
}

// Sanitize maps a line onto the Latin-1 repertoire of the renderer.
// Typographic quotes, dashes, ellipses and bullet glyphs become their ASCII
// forms. Decorative heading emoji and variation selectors are dropped,
// combining sequences are composed, letters outside Latin-1 lose their
// diacritics where possible, and anything else becomes Fallback. Sanitize
// never fails.
func Sanitize(line string) string {
	line = norm.NFC.String(typography.Replace(line))

	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		switch {
		case r == unicode.ReplacementChar:
			b.WriteRune(Fallback)
		case r < 0x20 || (r >= 0x7f && r < 0xa0):
			// Control characters carry nothing printable.
		case encodable(r):
			b.WriteRune(r)
		case decorations[r] || unicode.In(r, unicode.Variation_Selector):
		default:
			if base, ok := stripDiacritics(r); ok {
				b.WriteRune(base)
			} else {
				b.WriteRune(Fallback)
			}
		}
	}
	return b.String()
}

func encodable(r rune) bool {
	_, ok := charmap.ISO8859_1.EncodeRune(r)
	return ok
}

func stripDiacritics(r rune) (rune, bool) {
	base, _ := utf8.DecodeRuneInString(norm.NFD.String(string(r)))
	if base != r && encodable(base) && unicode.IsLetter(base) {
		return base, true
	}
	return 0, false
}
