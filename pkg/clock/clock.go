package clock

import "time"

// Clock reports the current time in a fixed location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New returns a clock backed by time.Now in the given location.
func New(loc *time.Location) *Clock {
	return WithNow(loc, time.Now)
}

// WithNow returns a clock using the provided time source, mainly for tests.
func WithNow(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

// Now returns the current instant in the clock's location.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today truncates Now to midnight in the clock's location.
func (c *Clock) Today() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// Location exposes the configured location.
func (c *Clock) Location() *time.Location {
	return c.loc
}
