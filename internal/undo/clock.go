package undo

import "time"

// Clock is the time source of the undo timers.
type Clock interface {
	Now() time.Time
	// AfterFunc runs f once, in its own goroutine, after d.
	AfterFunc(d time.Duration, f func()) Stopper
}

type Stopper interface {
	Stop() bool
}

type realClock struct{}

func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}
