package analysis

import (
	"unicode"
)

// Tokenize splits text into tokens for sentiment analysis: each CJK rune is
// its own token, latin/digit runs form one token, everything else is a
// separator. Deterministic for fixed input.
func Tokenize(text string) []string {
	var tokens []string
	var word []rune

	flush := func() {
		if len(word) > 0 {
			tokens = append(tokens, string(word))
			word = word[:0]
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word = append(word, r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}
