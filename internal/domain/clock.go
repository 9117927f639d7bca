package domain

import "github.com/jonboulle/clockwork"

// timeSource decides "now" for urgency windows and for alerts that arrive
// without start or end timestamps.
var timeSource clockwork.Clock = clockwork.NewRealClock()

// nowUnix is the current time in epoch seconds, the unit alerts carry.
func nowUnix() int64 {
	return timeSource.Now().Unix()
}

// SetClock replaces the time source and returns a func restoring the previous
// one. A nil clock selects real time.
func SetClock(c clockwork.Clock) (restore func()) {
	prev := timeSource
	if c == nil {
		c = clockwork.NewRealClock()
	}
	timeSource = c
	return func() { timeSource = prev }
}
