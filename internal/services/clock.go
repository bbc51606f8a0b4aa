package services

import "time"

// Clock supplies the current time in the service's canonical timezone.
// Exam start eligibility depends on the local civil date and hour, so the
// clock is injected rather than read from time.Now at call sites.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a clock pinned to the given location. A nil
// location means server local time.
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}
