package utils

import (
	"time"

	"lending/domain/entities"
	"lending/domain/interfaces"
)

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// Today returns the calendar date of the clock's current instant in UTC
func Today(clock interfaces.Clock) entities.Date {
	return entities.DateOf(clock.Now().UTC())
}

// NextRunAt returns the next occurrence of hour:00 UTC strictly after now
func NextRunAt(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
