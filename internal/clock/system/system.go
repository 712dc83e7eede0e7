// Package system provides the wall clock used to stamp stored entities.
package system

import "time"

// Clock implements headlines.Clock. Timestamps are UTC and truncated to
// milliseconds, the finest precision every storage backend round-trips.
type Clock struct{}

// New creates a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
