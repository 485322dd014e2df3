package search

import (
	"fmt"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// JapaneseAnalyzer splits Japanese text into morphemes with kagome.
type JapaneseAnalyzer struct {
	t *tokenizer.Tokenizer
}

var _ Analyzer = (*JapaneseAnalyzer)(nil)

// NewJapaneseAnalyzer loads the IPA dictionary.
func NewJapaneseAnalyzer() (*JapaneseAnalyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	return &JapaneseAnalyzer{t: t}, nil
}

// Terms returns surface and dictionary forms of every known morpheme.
func (a *JapaneseAnalyzer) Terms(text string) []string {
	var terms []string
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		surface := strings.TrimSpace(token.Surface)
		if surface == "" || len(Words(surface)) == 0 {
			continue
		}
		terms = append(terms, surface)

		// IPA feature 6 is the base form.
		features := token.Features()
		if len(features) > 6 && features[6] != "*" && features[6] != surface {
			terms = append(terms, features[6])
		}
	}
	return terms
}
