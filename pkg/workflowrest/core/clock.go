package core

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func NewRealClock() Clock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Used by tests and the bootstrap.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
