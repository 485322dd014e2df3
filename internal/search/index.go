// Package search derives denormalized search fields for example sentences
// and turns search needles into queries the document store can answer.
//
// Three query shapes are supported without a text index:
//
//   - prefix: a closed range over the normalized text
//   - suffix: the same range over the reversed normalized text
//   - contains: membership of one n-gram or word in the stored term set
//
// Contains is approximate. It never misses a match but may admit documents
// that only share the chosen term with the needle.
package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxGram is the longest n-gram stored in the term set.
const MaxGram = 3

// Mode selects a query shape.
type Mode string

const (
	ModePrefix   Mode = "prefix"
	ModeSuffix   Mode = "suffix"
	ModeContains Mode = "contains"
)

var ErrInvalidMode = errors.New("invalid search mode")

// ParseMode validates a mode name. An empty name selects contains.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeContains:
		return ModeContains, nil
	case ModePrefix:
		return ModePrefix, nil
	case ModeSuffix:
		return ModeSuffix, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Analyzer contributes extra terms for text that has no whitespace word boundaries.
type Analyzer interface {
	Terms(text string) []string
}

// Fields are the stored search fields of one example.
type Fields struct {
	Text     string
	Reversed string
	Terms    []string
}

// Indexer builds Fields. A nil Analyzer indexes Japanese text by n-grams only.
type Indexer struct {
	ja Analyzer
}

// NewIndexer returns an Indexer using ja for Japanese morphemes.
func NewIndexer(ja Analyzer) *Indexer {
	return &Indexer{ja: ja}
}

// Build derives the search fields for an English sentence and its translation.
func (ix *Indexer) Build(en, ja string) Fields {
	text := Normalize(en)
	terms := map[string]struct{}{}
	for _, w := range Words(text) {
		terms[w] = struct{}{}
	}
	addGrams(terms, stripSpaces(text))

	jaText := Normalize(ja)
	for _, w := range Words(jaText) {
		terms[w] = struct{}{}
	}
	addGrams(terms, stripSpaces(jaText))
	if ix != nil && ix.ja != nil && jaText != "" {
		for _, term := range ix.ja.Terms(jaText) {
			if term = Normalize(term); term != "" {
				terms[term] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(terms))
	for term := range terms {
		out = append(out, term)
	}
	sort.Strings(out)
	return Fields{Text: text, Reversed: Reverse(text), Terms: out}
}

// Normalize trims and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Reverse reverses s by rune.
func Reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func isDelimiter(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

// Words splits s on whitespace and punctuation.
func Words(s string) []string {
	return strings.FieldsFunc(s, isDelimiter)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func addGrams(terms map[string]struct{}, s string) {
	r := []rune(s)
	for n := 1; n <= MaxGram; n++ {
		for i := 0; i+n <= len(r); i++ {
			terms[string(r[i:i+n])] = struct{}{}
		}
	}
}

// upperSentinel sorts after every string sharing the same prefix.
var upperSentinel = string(utf8.MaxRune)

// PrefixRange returns the closed range of normalized texts starting with needle.
func PrefixRange(needle string) (lo, hi string) {
	n := Normalize(needle)
	return n, n + upperSentinel
}

// SuffixRange returns the closed range of reversed texts ending with needle.
func SuffixRange(needle string) (lo, hi string) {
	n := Reverse(Normalize(needle))
	return n, n + upperSentinel
}

// ContainsTerm picks the stored term to filter on for a contains search:
// the longest word fully delimited inside the needle, otherwise its first
// MaxGram-gram, otherwise the short needle itself. It returns "" for an
// empty needle.
func ContainsTerm(needle string) string {
	n := Normalize(needle)
	if n == "" {
		return ""
	}

	word := longestInteriorWord(n)
	if utf8.RuneCountInString(word) >= MaxGram {
		return word
	}
	stripped := []rune(stripSpaces(n))
	if len(stripped) >= MaxGram {
		return string(stripped[:MaxGram])
	}
	if word != "" {
		return word
	}
	return string(stripped)
}

// longestInteriorWord returns the longest word with a delimiter on both sides
// inside n. Only such words are guaranteed to appear whole in any text
// containing n.
func longestInteriorWord(n string) string {
	r := []rune(n)
	best := ""
	start := -1
	for i := 0; i <= len(r); i++ {
		if i < len(r) && !isDelimiter(r[i]) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start > 0 && i < len(r) {
			if w := string(r[start:i]); utf8.RuneCountInString(w) > utf8.RuneCountInString(best) {
				best = w
			}
		}
		start = -1
	}
	return best
}
