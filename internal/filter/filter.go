// Package filter decides which posted sensor entries are buffered.
package filter

import (
	"strings"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// Filter reports whether an entry qualifies for buffering.
type Filter interface {
	Match(e *sample.Entry) bool
	Name() string
}

// MatchMode selects how a Chain combines its members.
type MatchMode int

const (
	// MatchAny keeps an entry accepted by at least one member.
	MatchAny MatchMode = iota
	// MatchAll keeps an entry only when every member accepts it.
	MatchAll
)

// Chain is a Filter built from other filters. An empty chain keeps
// everything regardless of mode.
type Chain struct {
	filters []Filter
	mode    MatchMode
}

// NewChain returns a chain over filters.
func NewChain(mode MatchMode, filters ...Filter) *Chain {
	return &Chain{filters: filters, mode: mode}
}

// Default keeps finite accelerometer entries.
func Default() *Chain {
	return NewChain(MatchAll, NewChannelFilter(sample.Accelerometer), Finite{})
}

// Add appends f to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

func (c *Chain) Match(e *sample.Entry) bool {
	if len(c.filters) == 0 {
		return true
	}
	// The first member whose verdict differs from the mode's neutral
	// answer decides the outcome.
	want := c.mode == MatchAny
	for _, f := range c.filters {
		if f.Match(e) == want {
			return want
		}
	}
	return !want
}

// Name joins member names with the chain operator, e.g.
// "channel:accelerometer && finite".
func (c *Chain) Name() string {
	if len(c.filters) == 0 {
		return "all"
	}
	op := " || "
	if c.mode == MatchAll {
		op = " && "
	}
	names := make([]string, len(c.filters))
	for i, f := range c.filters {
		names[i] = f.Name()
	}
	return strings.Join(names, op)
}

// Len returns the number of members.
func (c *Chain) Len() int {
	return len(c.filters)
}
