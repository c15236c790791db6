package render

import (
	"github.com/Geun-Oh/accelx/internal/core"
	"github.com/Geun-Oh/accelx/internal/window"
)

// Funcs adapts plain functions to Renderer. Nil fields are skipped.
type Funcs struct {
	Window func(window.Frame)
	Append func(window.Delta)
	Status func(core.Status)
}

func (f Funcs) OnWindowUpdate(fr window.Frame) {
	if f.Window != nil {
		f.Window(fr)
	}
}

func (f Funcs) OnAppend(d window.Delta) {
	if f.Append != nil {
		f.Append(d)
	}
}

func (f Funcs) OnStatusChange(s core.Status) {
	if f.Status != nil {
		f.Status(s)
	}
}
