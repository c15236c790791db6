// Package sample defines the Sample value and the wire entries it is built from.
package sample

import (
	"fmt"
	"math"
)

// Accelerometer is the channel name the ingestion path keeps by default.
const Accelerometer = "accelerometer"

// Axis identifies one of the three sample components.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists every axis in trace order.
var Axes = [...]Axis{AxisX, AxisY, AxisZ}

// String returns the axis label.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return "?"
	}
}

// Sample is one 3-axis reading placed on the virtual time axis.
// T is seconds since the epoch origin. Samples are never mutated after creation.
type Sample struct {
	T float64 `json:"t"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Value returns the component for the given axis.
func (s Sample) Value(a Axis) float64 {
	switch a {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	default:
		return s.Z
	}
}

// Finite reports whether every field is a finite number.
func (s Sample) Finite() bool {
	for _, v := range [...]float64{s.T, s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Format returns a compact human-readable form.
func (s Sample) Format() string {
	return fmt.Sprintf("t=%.3f x=%.4f y=%.4f z=%.4f", s.T, s.X, s.Y, s.Z)
}

// Values is the vector carried by a wire entry.
type Values struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Entry is one named sensor reading as posted by the device.
// Time is the device clock in nanoseconds.
type Entry struct {
	Name   string `json:"name"`
	Time   int64  `json:"time"`
	Values Values `json:"values"`
}

// Payload is the body accepted by the ingestion endpoint.
type Payload struct {
	Payload []Entry `json:"payload"`
}
