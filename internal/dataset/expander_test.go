package dataset

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace() Space {
	return Space{
		{Name: "topic", Values: []string{"market", "tech", "health", "politics"}},
		{Name: "genre", Values: []string{"letter", "news", "story", "lecture"}},
		{Name: "tone", Values: []string{"serious", "playful", "urgent", "calm"}},
	}
}

func TestSpaceSize(t *testing.T) {
	assert.Equal(t, 64, testSpace().Size())
	assert.Equal(t, 0, Space{}.Size())
	assert.Equal(t, 4320000, NewsSpace().Size())
}

func TestExpandDeterminism(t *testing.T) {
	space := testSpace()

	first, err := Expand(space, 20, 42, nil)
	require.NoError(t, err)
	second, err := Expand(space, 20, 42, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExpandSeedVariation(t *testing.T) {
	space := testSpace()

	a, err := Expand(space, 20, 1, nil)
	require.NoError(t, err)
	b, err := Expand(space, 20, 2, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestExpandDistinctness(t *testing.T) {
	space := testSpace()

	combos, err := Expand(space, 64, 7, nil)
	require.NoError(t, err)
	require.Len(t, combos, 64)

	seen := make(map[string]bool)
	for _, c := range combos {
		key := fmt.Sprintf("%s|%s|%s", c["topic"], c["genre"], c["tone"])
		assert.False(t, seen[key], "duplicate combination %v", c)
		seen[key] = true
	}
}

func TestExpandCountExceedsProduct(t *testing.T) {
	_, err := Expand(testSpace(), 65, 42, nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestExpandEmptyDimension(t *testing.T) {
	space := Space{
		{Name: "topic", Values: []string{"market"}},
		{Name: "genre", Values: nil},
	}

	_, err := Expand(space, 1, 42, nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "genre")
}

func TestExpandEmptySpace(t *testing.T) {
	_, err := Expand(Space{}, 1, 42, nil)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestExpandNegativeCount(t *testing.T) {
	_, err := Expand(testSpace(), -1, 42, nil)
	assert.Error(t, err)
}

func TestExpandFilterShrinksProduct(t *testing.T) {
	space := testSpace()
	noLetters := func(c Combination) bool { return c["genre"] != "letter" }

	combos, err := Expand(space, 48, 42, noLetters)
	require.NoError(t, err)
	for _, c := range combos {
		assert.NotEqual(t, "letter", c["genre"])
	}

	// 16 letter combinations are filtered out, so 49 cannot be satisfied.
	_, err = Expand(space, 49, 42, noLetters)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExpandTwoBySpaceScenario(t *testing.T) {
	space := Space{
		{Name: "topic", Values: []string{"market", "tech"}},
		{Name: "genre", Values: []string{"letter", "news"}},
	}

	combos, err := Expand(space, 2, 42, nil)
	require.NoError(t, err)
	require.Len(t, combos, 2)

	again, err := Expand(space, 2, 42, nil)
	require.NoError(t, err)
	assert.Equal(t, combos, again)

	for _, c := range combos {
		assert.Contains(t, []string{"market", "tech"}, c["topic"])
		assert.Contains(t, []string{"letter", "news"}, c["genre"])
	}
	assert.NotEqual(t, combos[0], combos[1])
}

func TestExpandAllCoversValidProduct(t *testing.T) {
	space := testSpace()
	noLetters := func(c Combination) bool { return c["genre"] != "letter" }

	exp, err := ExpandAll(space, 42, noLetters)
	require.NoError(t, err)
	assert.Equal(t, 48, exp.Len())

	for i := 0; i < exp.Len(); i++ {
		assert.NotEqual(t, "letter", exp.At(i)["genre"])
	}
}

func TestExpandAllPositionsAreStable(t *testing.T) {
	space := testSpace()

	a, err := ExpandAll(space, 7, nil)
	require.NoError(t, err)
	b, err := ExpandAll(space, 7, nil)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := 0; i < a.Len(); i++ {
		assert.Equal(t, a.At(i), b.At(i))
	}

	// Expand is a prefix of the same shuffled order.
	prefix, err := Expand(space, 5, 7, nil)
	require.NoError(t, err)
	for i, c := range prefix {
		assert.Equal(t, a.At(i), c)
	}
}

func TestNewsFilter(t *testing.T) {
	tests := []struct {
		name  string
		combo Combination
		valid bool
	}{
		{
			name:  "plain report",
			combo: Combination{"genre": "news_report", "time_period": "recent_development", "setting": "newsroom", "speaker": "news_anchor", "complexity": "executive_summary"},
			valid: true,
		},
		{
			name:  "breaking news cannot be historical",
			combo: Combination{"genre": "breaking_news", "time_period": "historical_context"},
			valid: false,
		},
		{
			name:  "breaking news cannot be a projection",
			combo: Combination{"genre": "breaking_news", "time_period": "future_projection"},
			valid: false,
		},
		{
			name:  "expert interview needs a fitting setting",
			combo: Combination{"genre": "expert_interview", "setting": "stock_exchange"},
			valid: false,
		},
		{
			name:  "deep dives need expert speakers",
			combo: Combination{"complexity": "technical_deep_dive", "speaker": "news_anchor"},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, NewsFilter(tt.combo))
		})
	}
}

func TestConfigurationErrorUnwrapping(t *testing.T) {
	err := fmt.Errorf("expansion failed: %w", &ConfigurationError{Msg: "boom"})

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "configuration error: boom", cfgErr.Error())
}
