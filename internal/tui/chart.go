package tui

import (
	"math"
	"strings"

	"github.com/Geun-Oh/accelx/internal/sample"
	"github.com/Geun-Oh/accelx/internal/window"
)

var levels = []rune(" ▁▂▃▄▅▆▇█")

// columns decimates samples into width time buckets over [start, end],
// keeping the latest value per bucket. Empty buckets are NaN.
func columns(samples []sample.Sample, start, end float64, width int, axis sample.Axis) []float64 {
	out := make([]float64, width)
	for i := range out {
		out[i] = math.NaN()
	}
	span := end - start
	if width <= 0 || span <= 0 {
		return out
	}
	for _, s := range samples {
		if s.T < start || s.T > end {
			continue
		}
		idx := int((s.T - start) / span * float64(width))
		if idx >= width {
			idx = width - 1
		}
		out[idx] = s.Value(axis)
	}
	return out
}

// plot renders values as height rows of partial blocks scaled to [lo, hi].
func plot(values []float64, lo, hi float64, height int) []string {
	if height < 1 {
		height = 1
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	steps := len(levels) - 1

	rows := make([]string, height)
	var sb strings.Builder
	for r := height - 1; r >= 0; r-- {
		sb.Reset()
		for _, v := range values {
			if math.IsNaN(v) {
				sb.WriteRune(' ')
				continue
			}
			fill := int(math.Round((v-lo)/span*float64(height*steps))) - r*steps
			fill = max(0, min(steps, fill))
			sb.WriteRune(levels[fill])
		}
		rows[height-1-r] = sb.String()
	}
	return rows
}

// chartLines draws one block per axis for the frame.
func chartLines(f window.Frame, width, heightPerAxis int) map[sample.Axis][]string {
	out := make(map[sample.Axis][]string, len(sample.Axes))
	for _, a := range sample.Axes {
		cols := columns(f.Samples, f.Start, f.End, width, a)
		out[a] = plot(cols, f.YMin, f.YMax, heightPerAxis)
	}
	return out
}
