/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package prompts holds the word lists rounds draw their prompts from.
package prompts

import (
	"math/rand/v2"
	"slices"
)

// Random is the category preference meaning "pick any category".
const Random = "random"

// Catalog maps category names to their words. It is immutable once built.
type Catalog struct {
	categories map[string][]string
	names      []string
}

// New builds a catalog from the given lists. Empty categories are dropped.
func New(lists map[string][]string) *Catalog {
	c := &Catalog{
		categories: make(map[string][]string, len(lists)),
		names:      make([]string, 0, len(lists)),
	}

	for name, words := range lists {
		if len(words) == 0 || name == Random {
			continue
		}
		c.categories[name] = slices.Clone(words)
		c.names = append(c.names, name)
	}

	slices.Sort(c.names)

	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(defaultLists)
}

// Categories returns the category names in sorted order.
func (c *Catalog) Categories() []string {
	return slices.Clone(c.names)
}

// Has reports whether name is a known category or Random.
func (c *Catalog) Has(name string) bool {
	if name == Random {
		return true
	}
	_, ok := c.categories[name]
	return ok
}

// Pick returns a category and a word from it. With a known preference the
// word is sampled uniformly from that category; otherwise a category is
// sampled uniformly first, then a word within it. intn must return a value
// in [0, n); nil means math/rand/v2.IntN.
func (c *Catalog) Pick(preference string, intn func(n int) int) (category, word string) {
	if intn == nil {
		intn = rand.IntN
	}
	if len(c.names) == 0 {
		return "", ""
	}

	category = preference
	if _, ok := c.categories[category]; !ok {
		category = c.names[intn(len(c.names))]
	}

	words := c.categories[category]

	return category, words[intn(len(words))]
}
