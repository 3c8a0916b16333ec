package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the canonical storage format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC, stored as "YYYY-MM-DD". The zero value is
// the empty string and means "no date".
type Date string

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(DateLayout))
}

// ParseDate validates s and returns it as a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", err
	}
	return DateOf(t), nil
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d == "" }

// Time returns midnight UTC of d. Unparseable dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// DaysBetween returns the whole number of days from a to b. It returns ok
// false when either date is unset or malformed.
func DaysBetween(a, b Date) (days int, ok bool) {
	ta, tb := a.Time(), b.Time()
	if ta.IsZero() || tb.IsZero() {
		return 0, false
	}
	// Both are UTC midnights, so the division is exact.
	return int(tb.Sub(ta) / (24 * time.Hour)), true
}

// String implements fmt.Stringer.
func (d Date) String() string { return string(d) }

// Value implements driver.Valuer so dates bind as plain strings on every driver.
func (d Date) Value() (driver.Value, error) { return string(d), nil }

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case string:
		*d = Date(v)
	case []byte:
		*d = Date(v)
	case time.Time:
		*d = DateOf(v)
	default:
		return fmt.Errorf("domain.Date: cannot scan %T", src)
	}
	return nil
}
