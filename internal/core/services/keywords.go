package services

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordRunes is the shortest word counted as a keyword.
const minKeywordRunes = 4

// spanishStopWords are frequent function words with no topical weight.
// Only words of minKeywordRunes or more need listing.
var spanishStopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		este esta estos estas esto ese esas esos aquel aquella aquellos aquellas
		para porque cuando donde como sobre desde hasta entre durante mediante según
		contra hacia ante bajo cabe tras versus quien quienes cual cuales cuanto cuanta
		aunque mientras sino pero también tampoco solo solamente todavía ahora entonces
		luego después antes siempre nunca mucho mucha muchos muchas poco poca pocos pocas
		más menos bastante demasiado todo todos toda todas alguno algunos alguna algunas
		ninguno ninguna otro otros otra otras mismo mismos misma mismas cada cualquier
		tanto tanta tantos tantas están estaba estaban estar será serán
		sido siendo sean haber habido había habían hace hacer hecho tiene tienen tener
		puede pueden debe deben dicho dicha dichos dichas cuya cuyo cuyas cuyos
		nuestro nuestra nuestros nuestras vuestro vuestra suyo suya suyos suyas ellos
		ellas nosotros usted ustedes además así sólo dentro fuera encima debajo
		hubo fueron eran eres somos unos unas`) {
		spanishStopWords[w] = struct{}{}
	}
}

// TopKeywords returns the n most frequent words in text. Words are
// lower-cased with accents kept, must have at least four letters and must
// not be Spanish stop words. Ties are broken alphabetically.
func TopKeywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if utf8.RuneCountInString(w) < minKeywordRunes {
			continue
		}
		if _, stop := spanishStopWords[w]; stop {
			continue
		}
		counts[w]++
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if n > 0 && len(words) > n {
		words = words[:n]
	}
	return words
}
