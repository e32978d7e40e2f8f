package xliff

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// scriptCounted holds base languages whose scripts do not separate words
// with spaces; each ideograph or syllable counts as one word.
var scriptCounted = map[string]bool{
	"zh": true,
	"ja": true,
	"ko": true,
	"th": true,
	"km": true,
	"lo": true,
	"my": true,
}

// CountWords returns the billable word count of plain segment text for the
// given language tag. Space-separated languages count whitespace-delimited
// tokens; script-counted languages count characters of their scripts plus
// any embedded space-separated runs.
func CountWords(text, lang string) int {
	base := ""
	if tag, err := language.Parse(lang); err == nil {
		b, _ := tag.Base()
		base = b.String()
	}
	if !scriptCounted[base] {
		return len(strings.Fields(text))
	}

	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana,
			unicode.Hangul, unicode.Thai, unicode.Khmer, unicode.Lao, unicode.Myanmar):
			count++
			inWord = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}
