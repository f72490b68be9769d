package clock

import "time"

var (
	Time Clock = &realClock{}
)

// Clock is the source of the current time used for submissions and for
// deciding which events are still upcoming.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

// Day returns the calendar day of t as midnight UTC. The year, month and day
// are taken from t's own location so a date picked in local time keeps its
// calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day according to c.
func Today(c Clock) time.Time {
	return Day(c.Now())
}
