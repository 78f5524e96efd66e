package usecase

import (
	"time"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

// Clock tells use cases what day it is in the business timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func NewClock(loc *time.Location) Clock {
	return Clock{Now: time.Now, Location: loc}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return entity.DateOf(c.now().In(loc))
}
