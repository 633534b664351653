package date

import (
	"fmt"
	"time"
)

const DateFormat = "2006-01-02"

// Date is a calendar day, without any time of day or location.
type Date struct {
	t time.Time
}

// If set, Today() returns this instead of the real date.
var TodaysDateForTest Date

func New(year uint32, month time.Month, day uint32) Date {
	return Date{time.Date(int(year), month, int(day), 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func Parse(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Today() Date {
	if !TodaysDateForTest.IsZero() {
		return TodaysDateForTest
	}
	return FromTime(time.Now())
}

func (d Date) Time() time.Time     { return d.t }
func (d Date) Year() int           { return d.t.Year() }
func (d Date) Month() time.Month   { return d.t.Month() }
func (d Date) Day() int            { return d.t.Day() }
func (d Date) IsZero() bool        { return d.t.IsZero() }
func (d Date) Before(o Date) bool  { return d.t.Before(o.t) }
func (d Date) After(o Date) bool   { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool   { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date  { return Date{d.t.AddDate(0, 0, n)} }
func (d Date) AddYears(n int) Date { return Date{d.t.AddDate(n, 0, 0)} }

// Compare returns -1, 0 or 1 depending on whether d is before, equal to or
// after o.
func (d Date) Compare(o Date) int {
	switch {
	case d.t.Before(o.t):
		return -1
	case d.t.After(o.t):
		return 1
	}
	return 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateFormat)
}

func StartOfYear(year int) Date {
	return New(uint32(year), time.January, 1)
}

func EndOfYear(year int) Date {
	return New(uint32(year), time.December, 31)
}
