package scheduling

import "time"

// Clock provides the current time in the clinic's timezone. Services take it
// as a collaborator so tests can pin the moment slot resolution and reminder
// staging run against.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock reporting wall time in loc.
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}
