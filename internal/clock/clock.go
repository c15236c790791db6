// Package clock maps device-reported sample time onto the virtual time axis.
package clock

import (
	"sync"
	"time"
)

// DefaultUnit is the number of device time units per second (nanoseconds).
const DefaultUnit = 1e9

// Virtual holds the epoch mapping: the device time of the first sample in the
// epoch and the wall-clock instant it arrived. Both are unset until
// EstablishIfUnset and again after Reset.
type Virtual struct {
	mu          sync.RWMutex
	unit        float64
	base        int64
	origin      time.Time
	established bool
}

// New creates an unestablished clock. unit <= 0 selects DefaultUnit.
func New(unit float64) *Virtual {
	if unit <= 0 {
		unit = DefaultUnit
	}
	return &Virtual{unit: unit}
}

// EstablishIfUnset sets the epoch base and origin. Calls after the first are
// no-ops until Reset. Reports whether this call established the epoch.
func (c *Virtual) EstablishIfUnset(deviceTime int64, wallNow time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.established {
		return false
	}
	c.base = deviceTime
	c.origin = wallNow
	c.established = true
	return true
}

// IsEstablished reports whether an epoch is active. ToVirtual and Now are
// only meaningful when it returns true.
func (c *Virtual) IsEstablished() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.established
}

// ToVirtual converts a device timestamp to seconds since the epoch base.
func (c *Virtual) ToVirtual(deviceTime int64) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return float64(deviceTime-c.base) / c.unit
}

// Now returns wall-clock seconds elapsed since the epoch origin.
func (c *Virtual) Now(wallNow time.Time) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return wallNow.Sub(c.origin).Seconds()
}

// Base returns the epoch base device time and origin wall clock.
func (c *Virtual) Base() (int64, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.base, c.origin, c.established
}

// Reset unsets the epoch.
func (c *Virtual) Reset() {
	c.mu.Lock()
	c.base = 0
	c.origin = time.Time{}
	c.established = false
	c.mu.Unlock()
}
