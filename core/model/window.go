package model

import "time"

// Window is a half-open time interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// NewWindow builds a window from start and duration.
func NewWindow(from time.Time, d time.Duration) Window {
	return Window{From: from, To: from.Add(d)}
}

// Duration returns the length of the window.
func (w Window) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return w.To.After(w.From)
}

// Overlaps reports whether two half-open intervals intersect.
func (w Window) Overlaps(o Window) bool {
	return w.From.Before(o.To) && o.From.Before(w.To)
}

// OverlapsWithBuffer reports whether the intervals intersect once each is
// extended by the given buffer on both sides. A zero buffer is the plain
// overlap test.
func (w Window) OverlapsWithBuffer(o Window, buffer time.Duration) bool {
	return w.From.Add(-buffer).Before(o.To) && o.From.Before(w.To.Add(buffer))
}

// Gap returns the idle time between two disjoint windows. It is negative when
// the windows overlap.
func (w Window) Gap(o Window) time.Duration {
	if w.To.Before(o.From) || w.To.Equal(o.From) {
		return o.From.Sub(w.To)
	}
	if o.To.Before(w.From) || o.To.Equal(w.From) {
		return w.From.Sub(o.To)
	}
	return -1
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// Shift returns the window moved by d, preserving its duration.
func (w Window) Shift(d time.Duration) Window {
	return Window{From: w.From.Add(d), To: w.To.Add(d)}
}

// Center returns the midpoint of the window.
func (w Window) Center() time.Time {
	return w.From.Add(w.Duration() / 2)
}

// Intersects reports whether the window intersects [from, to).
func (w Window) Intersects(from, to time.Time) bool {
	return w.Overlaps(Window{From: from, To: to})
}
