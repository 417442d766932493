package analysis

import "sort"

type counterEntry[K comparable] struct {
	key   K
	count int64
}

// orderedCounter counts keys and remembers the order they were first seen,
// which breaks ties when ranking.
type orderedCounter[K comparable] struct {
	index   map[K]int
	entries []counterEntry[K]
}

func newOrderedCounter[K comparable]() *orderedCounter[K] {
	return &orderedCounter[K]{index: make(map[K]int)}
}

func (c *orderedCounter[K]) add(key K) {
	i, ok := c.index[key]
	if !ok {
		i = len(c.entries)
		c.index[key] = i
		c.entries = append(c.entries, counterEntry[K]{key: key})
	}
	c.entries[i].count++
}

// top returns up to n entries by descending count.
func (c *orderedCounter[K]) top(n int) []counterEntry[K] {
	ranked := make([]counterEntry[K], len(c.entries))
	copy(ranked, c.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].count > ranked[j].count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (c *orderedCounter[K]) toMap() map[K]int64 {
	m := make(map[K]int64, len(c.entries))
	for _, e := range c.entries {
		m[e.key] = e.count
	}
	return m
}
