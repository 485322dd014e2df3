package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJapaneseAnalyzer_Terms(t *testing.T) {
	a, err := NewJapaneseAnalyzer()
	require.NoError(t, err)

	terms := a.Terms("今日は晴れ。")
	assert.Contains(t, terms, "今日")
	assert.NotContains(t, terms, "。")

	f := NewIndexer(a).Build("It is sunny today.", "今日は晴れ。")
	assert.Contains(t, f.Terms, "今日")
}
