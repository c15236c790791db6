package filter

import (
	"math"

	"github.com/Geun-Oh/accelx/internal/sample"
)

// ChannelFilter matches entries from one named sensor channel.
type ChannelFilter struct {
	name string
}

// NewChannelFilter creates a filter for the given channel name.
func NewChannelFilter(name string) *ChannelFilter {
	return &ChannelFilter{name: name}
}

// Match returns true if the entry name equals the channel.
func (f *ChannelFilter) Match(e *sample.Entry) bool {
	return e.Name == f.name
}

// Name returns the filter description.
func (f *ChannelFilter) Name() string {
	return "channel:" + f.name
}

// Finite rejects entries carrying NaN or infinite components.
type Finite struct{}

// Match returns true if all three values are finite.
func (Finite) Match(e *sample.Entry) bool {
	for _, v := range [...]float64{e.Values.X, e.Values.Y, e.Values.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Name returns the filter description.
func (Finite) Name() string {
	return "finite"
}
