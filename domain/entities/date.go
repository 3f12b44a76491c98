package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the ISO calendar-date layout used everywhere a Date is rendered
const DateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no zone.
// The zero value is the unset date.
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate builds a Date from its calendar components
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf takes the calendar date of t as seen in t's own location
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals in tests and fixtures
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns midnight UTC of the date
func (d Date) Time() time.Time {
	return d.t
}

// Year returns the calendar year
func (d Date) Year() int {
	return d.t.Year()
}

// Month returns the calendar month
func (d Date) Month() time.Month {
	return d.t.Month()
}

// Day returns the day of month
func (d Date) Day() int {
	return d.t.Day()
}

// AddDays returns the date n days later (earlier for negative n)
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// MonthStart returns the first day of the date's month
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// MonthEnd returns the last day of the date's month
func (d Date) MonthEnd() Date {
	return NewDate(d.Year(), d.Month()+1, 0)
}

// NextMonthEnd returns the last day of the following month
func (d Date) NextMonthEnd() Date {
	return NewDate(d.Year(), d.Month()+2, 0)
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After reports whether d is strictly later than other
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal reports whether both dates name the same day
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// Compare returns -1, 0 or +1
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// String renders the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
