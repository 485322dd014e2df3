// Package mentions finds pack labels mentioned in free text.
package mentions

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/mrlokans/wordpack/internal/database/packs"
)

// LabelSource lists the labels a Detector is built from.
type LabelSource interface {
	Labels(ctx context.Context) ([]packs.LabelRef, error)
}

// Detector matches pack labels in text, case-insensitively and on whole words only.
type Detector struct {
	ac       ahocorasick.AhoCorasick
	patterns []string
	owners   [][]packs.LabelRef
}

// NewDetector compiles an automaton over the given labels. Packs sharing a
// label (ignoring case) share one pattern.
func NewDetector(refs []packs.LabelRef) *Detector {
	d := &Detector{}
	index := map[string]int{}
	for _, ref := range refs {
		key := strings.ToLower(strings.TrimSpace(ref.Label))
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(d.patterns)
			index[key] = i
			d.patterns = append(d.patterns, key)
			d.owners = append(d.owners, nil)
		}
		d.owners[i] = append(d.owners[i], ref)
	}
	if len(d.patterns) == 0 {
		return d
	}

	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.StandardMatch, // IterOverlapping needs it
	})
	d.ac = builder.Build(d.patterns)
	return d
}

// Load builds a Detector from every label in src.
func Load(ctx context.Context, src LabelSource) (*Detector, error) {
	refs, err := src.Labels(ctx)
	if err != nil {
		return nil, err
	}
	return NewDetector(refs), nil
}

// Len returns the number of distinct patterns.
func (d *Detector) Len() int {
	return len(d.patterns)
}

type span struct {
	start, end, pattern int
}

// DetectPacks returns the packs whose labels occur in body, each once, in
// order of first occurrence. Overlapping whole-word matches resolve to the
// leftmost, then the longest.
func (d *Detector) DetectPacks(body string) []packs.LabelRef {
	if len(d.patterns) == 0 || body == "" {
		return nil
	}
	haystack := strings.ToLower(body)

	// Boundaries are checked before overlaps are resolved, so a rejected
	// long label never hides a shorter one.
	var spans []span
	iter := d.ac.IterOverlapping(haystack)
	for {
		m := iter.Next()
		if m == nil {
			break
		}
		if wholeWord(haystack, m.Start(), m.End()) {
			spans = append(spans, span{m.Start(), m.End(), m.Pattern()})
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end > spans[j].end
	})

	var out []packs.LabelRef
	seen := map[string]bool{}
	cursor := 0
	for _, sp := range spans {
		if sp.start < cursor {
			continue
		}
		cursor = sp.end
		for _, ref := range d.owners[sp.pattern] {
			if seen[ref.ID] {
				continue
			}
			seen[ref.ID] = true
			out = append(out, ref)
		}
	}
	return out
}

// wholeWord reports whether s[start:end] is not glued to a letter or digit.
func wholeWord(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
