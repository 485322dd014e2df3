package entities

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Category groups the example sentences of a pack.
type Category string

const (
	CategoryDev      Category = "Dev"
	CategoryCS       Category = "CS"
	CategoryLLM      Category = "LLM"
	CategoryBusiness Category = "Business"
	CategoryCommon   Category = "Common"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDev,
	CategoryCS,
	CategoryLLM,
	CategoryBusiness,
	CategoryCommon,
}

var ErrInvalidCategory = errors.New("invalid example category")

// ParseCategory validates a category name. Matching is exact.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// CategoryCounts caches the number of live examples per category on a pack.
type CategoryCounts map[Category]Count

// NewCategoryCounts returns counts with every category present and zero.
func NewCategoryCounts() CategoryCounts {
	counts := make(CategoryCounts, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	return counts
}

// Total sums all categories.
func (cc CategoryCounts) Total() int {
	total := 0
	for _, n := range cc {
		total += n.Int()
	}
	return total
}

// Normalized returns a copy with every known category present.
func (cc CategoryCounts) Normalized() CategoryCounts {
	out := NewCategoryCounts()
	for c, n := range cc {
		if c.Valid() {
			out[c] = n
		}
	}
	return out
}

// Lemma is the canonical record for a vocabulary label. Its document id is
// the normalized key, except for legacy records created before canonicalization.
type Lemma struct {
	Key        string    `json:"key"`
	Label      string    `json:"label"`
	SenseTitle string    `json:"sense_title"`
	LLMModel   string    `json:"llm_model"`
	LLMParams  string    `json:"llm_params"`
	CreatedAt  Timestamp `json:"created_at"`
	UpdatedAt  Timestamp `json:"updated_at"`
}

// Pack is the stored vocabulary pack. Core is opaque to the store.
type Pack struct {
	ID             string         `json:"id"`
	LemmaKey       string         `json:"lemma_key"`
	Label          string         `json:"label"`
	LabelKey       string         `json:"label_key"`
	SenseTitle     string         `json:"sense_title"`
	LLMModel       string         `json:"llm_model"`
	LLMParams      string         `json:"llm_params"`
	Core           string         `json:"core"`
	CheckedCount   Count          `json:"checked_count"`
	LearnedCount   Count          `json:"learned_count"`
	CategoryCounts CategoryCounts `json:"category_counts"`
	CreatedAt      Timestamp      `json:"created_at"`
	UpdatedAt      Timestamp      `json:"updated_at"`
}

// Example is one stored example sentence. Search fields are derived at write time.
type Example struct {
	ID                  int64     `json:"id"`
	PackID              string    `json:"pack_id"`
	Category            Category  `json:"category"`
	Position            int       `json:"position"`
	En                  string    `json:"en"`
	Ja                  string    `json:"ja"`
	GrammarNote         string    `json:"grammar_note"`
	LLMModel            string    `json:"llm_model"`
	LLMParams           string    `json:"llm_params"`
	CheckedCount        Count     `json:"checked_count"`
	LearnedCount        Count     `json:"learned_count"`
	TypingPracticeChars Count     `json:"typing_practice_chars"`
	CreatedAt           Timestamp `json:"created_at"`
	SearchText          string    `json:"search_text"`
	SearchTextReversed  string    `json:"search_text_reversed"`
	SearchTerms         []string  `json:"search_terms"`
}

// ExampleItem is the caller-facing shape of an example inside a pack payload.
type ExampleItem struct {
	ID                  int64  `json:"id,omitempty"`
	En                  string `json:"en"`
	Ja                  string `json:"ja,omitempty"`
	GrammarNote         string `json:"grammar_note,omitempty"`
	LLMModel            string `json:"llm_model,omitempty"`
	LLMParams           string `json:"llm_params,omitempty"`
	CheckedCount        Count  `json:"checked_count"`
	LearnedCount        Count  `json:"learned_count"`
	TypingPracticeChars Count  `json:"typing_practice_chars"`
}

// Item converts a stored example to its payload shape.
func (e Example) Item() ExampleItem {
	return ExampleItem{
		ID:                  e.ID,
		En:                  e.En,
		Ja:                  e.Ja,
		GrammarNote:         e.GrammarNote,
		LLMModel:            e.LLMModel,
		LLMParams:           e.LLMParams,
		CheckedCount:        e.CheckedCount,
		LearnedCount:        e.LearnedCount,
		TypingPracticeChars: e.TypingPracticeChars,
	}
}

// PackPayload is what callers save. Only the named fields are inspected by the
// store; Core carries everything else untouched.
type PackPayload struct {
	SenseTitle string                     `json:"sense_title,omitempty"`
	LLMModel   string                     `json:"llm_model,omitempty"`
	LLMParams  string                     `json:"llm_params,omitempty"`
	Examples   map[Category][]ExampleItem `json:"examples,omitempty"`
	Core       json.RawMessage            `json:"core,omitempty"`
}

// ExampleCount returns the number of examples across categories.
func (p PackPayload) ExampleCount() int {
	n := 0
	for _, items := range p.Examples {
		n += len(items)
	}
	return n
}

// PackDetail is a pack read back with its examples merged into the payload.
type PackDetail struct {
	ID             string         `json:"id"`
	LemmaKey       string         `json:"lemma_key"`
	Label          string         `json:"label"`
	Payload        PackPayload    `json:"payload"`
	CheckedCount   Count          `json:"checked_count"`
	LearnedCount   Count          `json:"learned_count"`
	CategoryCounts CategoryCounts `json:"category_counts"`
	CreatedAt      Timestamp      `json:"created_at"`
	UpdatedAt      Timestamp      `json:"updated_at"`
}

// PackSummary is a listing row. CategoryCounts and IsEmpty are only filled by
// the "with flags" listing.
type PackSummary struct {
	ID             string         `json:"id"`
	LemmaKey       string         `json:"lemma_key"`
	Label          string         `json:"label"`
	SenseTitle     string         `json:"sense_title,omitempty"`
	CheckedCount   Count          `json:"checked_count"`
	LearnedCount   Count          `json:"learned_count"`
	CategoryCounts CategoryCounts `json:"category_counts,omitempty"`
	IsEmpty        bool           `json:"is_empty"`
	CreatedAt      Timestamp      `json:"created_at"`
	UpdatedAt      Timestamp      `json:"updated_at"`
}

// Summary builds a listing row from a stored pack.
func (p Pack) Summary(withFlags bool) PackSummary {
	s := PackSummary{
		ID:           p.ID,
		LemmaKey:     p.LemmaKey,
		Label:        p.Label,
		SenseTitle:   p.SenseTitle,
		CheckedCount: p.CheckedCount,
		LearnedCount: p.LearnedCount,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if withFlags {
		s.CategoryCounts = p.CategoryCounts.Normalized()
		s.IsEmpty = s.CategoryCounts.Total() == 0
	}
	return s
}

// StudyProgress is returned by counter updates.
type StudyProgress struct {
	CheckedCount Count `json:"checked_count"`
	LearnedCount Count `json:"learned_count"`
}

// ExampleView is a cross-pack example listing row.
type ExampleView struct {
	Example
	PackLabel string `json:"pack_label"`
}
