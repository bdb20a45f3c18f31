package markup

import (
	"strings"
	"unicode"

	"github.com/xkilldash9x/scalpel-report/api/schemas"
)

// KeywordClass binds severity-signal keywords to a label color.
type KeywordClass struct {
	Color    schemas.ColorClass
	Keywords []string
}

// DefaultKeywords lists the keyword classes from most to least severe.
// Matching is on whole upper-cased words; multi-word keywords match as a
// phrase.
var DefaultKeywords = []KeywordClass{
	{Color: schemas.ColorCritical, Keywords: []string{"CRITICAL", "URGENT", "DANGER", "CRITIQUE", "CE JOUR"}},
	{Color: schemas.ColorElevated, Keywords: []string{"CONCERNING", "IMPORTANT", "ALERT", "PRÉOCCUPANT", "ALERTE"}},
	{Color: schemas.ColorModerate, Keywords: []string{"MODERATE", "MODÉRÉ"}},
	{Color: schemas.ColorRobust, Keywords: []string{"ROBUST", "SATISFACTORY", "OK", "ROBUSTE", "SATISFAISANT"}},
}

// matchKeyword returns the color of the most severe class with a keyword in
// line.
func matchKeyword(classes []KeywordClass, line string) (schemas.ColorClass, bool) {
	words := strings.FieldsFunc(strings.ToUpper(line), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return "", false
	}
	haystack := " " + strings.Join(words, " ") + " "
	for _, class := range classes {
		for _, kw := range class.Keywords {
			if strings.Contains(haystack, " "+kw+" ") {
				return class.Color, true
			}
		}
	}
	return "", false
}
