/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prompts

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[i%len(values)]
		i++
		return v % n
	}
}

func TestNew_DropsEmptyAndReserved(t *testing.T) {
	c := New(map[string][]string{
		"b":    {"x"},
		"a":    {"y", "z"},
		"none": nil,
		Random: {"nope"},
	})

	assert.Equal(t, []string{"a", "b"}, c.Categories())
	assert.True(t, c.Has("a"))
	assert.True(t, c.Has(Random))
	assert.False(t, c.Has("none"))
	assert.False(t, c.Has("c"))
}

func TestPick_WithPreference(t *testing.T) {
	c := New(map[string][]string{
		"a": {"one", "two", "three"},
		"b": {"four"},
	})

	cat, word := c.Pick("a", fixed(2))
	assert.Equal(t, "a", cat)
	assert.Equal(t, "three", word)
}

func TestPick_RandomCategory(t *testing.T) {
	c := New(map[string][]string{
		"a": {"one", "two", "three"},
		"b": {"four", "five"},
	})

	cat, word := c.Pick(Random, fixed(1, 1))
	assert.Equal(t, "b", cat)
	assert.Equal(t, "five", word)

	cat, word = c.Pick("unknown", fixed(0, 2))
	assert.Equal(t, "a", cat)
	assert.Equal(t, "three", word)
}

func TestPick_DefaultSource(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Categories())

	for range 100 {
		cat, word := c.Pick(Random, nil)
		require.True(t, c.Has(cat))
		assert.True(t, slices.Contains(defaultLists[cat], word))
	}
}

func TestPick_EmptyCatalog(t *testing.T) {
	cat, word := New(nil).Pick(Random, nil)
	assert.Empty(t, cat)
	assert.Empty(t, word)
}

func TestCategories_ReturnsCopy(t *testing.T) {
	c := Default()
	names := c.Categories()
	names[0] = "mutated"

	assert.NotEqual(t, "mutated", c.Categories()[0])
}
