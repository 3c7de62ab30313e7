// Package calendar provides date-only helpers on top of civil.Date.
//
// Billing boundaries are calendar days. Nothing in this package carries a
// time of day, so resolution can never drift across a time zone boundary.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidDate = errors.New("invalid_date")

// Clock is the subset of clock.Clock needed to compute today's date.
type Clock interface {
	Now() time.Time
}

// Parse accepts YYYY-MM-DD or an RFC3339 timestamp. Timestamps keep the date
// as written in their own offset.
func Parse(raw string) (civil.Date, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return civil.Date{}, ErrInvalidDate
	}
	if d, err := civil.ParseDate(value); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return civil.DateOf(t), nil
	}
	// Upstream sometimes emits naive timestamps.
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return civil.DateOf(t), nil
	}
	return civil.Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// ParseOptional returns nil for an empty string.
func ParseOptional(raw string) (*civil.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Today returns the current calendar date in loc.
func Today(c Clock, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(c.Now().In(loc))
}

// IsZero reports whether d is the zero Date.
func IsZero(d civil.Date) bool {
	return d == civil.Date{}
}

// Within reports whether d lies in [from, to]. A nil to is open-ended.
func Within(d, from civil.Date, to *civil.Date) bool {
	if d.Before(from) {
		return false
	}
	if to != nil && d.After(*to) {
		return false
	}
	return true
}

func Max(a, b civil.Date) civil.Date {
	if a.After(b) {
		return a
	}
	return b
}

func Min(a, b civil.Date) civil.Date {
	if a.Before(b) {
		return a
	}
	return b
}

// DaysInclusive counts the days in [from, to]. It is zero when to < from.
func DaysInclusive(from, to civil.Date) int {
	if to.Before(from) {
		return 0
	}
	return to.DaysSince(from) + 1
}

// MonthRange returns the first and last day of the given month.
func MonthRange(year int, month time.Month) (civil.Date, civil.Date) {
	first := civil.Date{Year: year, Month: month, Day: 1}
	last := civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
	return first, last
}

// ToTime returns midnight UTC of d, the representation used in SQL columns.
func ToTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// FromTime returns the date of t in UTC.
func FromTime(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

// FromTimePtr is FromTime for optional columns.
func FromTimePtr(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := FromTime(*t)
	return &d
}

// ToTimePtr is ToTime for optional dates.
func ToTimePtr(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := ToTime(*d)
	return &t
}
