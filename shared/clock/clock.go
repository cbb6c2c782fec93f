// Package clock holds a wall-clock time of day with minute precision.
//
// A Clock is stored as minutes since midnight and travels as "HH:MM" in JSON
// and as a TIME column in PostgreSQL.
package clock

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Layout       = "15:04"
	MinutesInDay = 24 * 60
)

var ErrInvalidClock = errors.New("invalid time of day, expected HH:MM")

type Clock int

// New builds a Clock from hour and minute, rejecting out of range values.
func New(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, hour, minute)
	}

	return Clock(hour*60 + minute), nil
}

// MustParse is Parse for constants and tests.
func MustParse(value string) Clock {
	c, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return c
}

// Parse accepts "HH:MM" and, for values read back from the database, "HH:MM:SS".
func Parse(value string) (Clock, error) {
	value = strings.TrimSpace(value)

	layout := Layout
	if strings.Count(value, ":") == 2 {
		layout = time.TimeOnly
	}

	parsed, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}

	return Clock(parsed.Hour()*60 + parsed.Minute()), nil
}

func FromTime(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) Hour() int {
	return int(c) / 60
}

func (c Clock) Minute() int {
	return int(c) % 60
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant of c on the calendar day of date, in date's location.
func (c Clock) On(date time.Time) time.Time {
	year, month, day := date.Date()

	return time.Date(year, month, day, c.Hour(), c.Minute(), 0, 0, date.Location())
}

func (c Clock) Before(other Clock) bool {
	return c < other
}

func (c Clock) Valid() bool {
	return c >= 0 && c < MinutesInDay
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Clock) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidClock, string(data))
	}

	parsed, err := Parse(raw)
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}

// Value implements driver.Valuer.
func (c Clock) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner.
func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*c = FromTime(v)

		return nil
	case string:
		return c.scanString(v)
	case []byte:
		return c.scanString(string(v))
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidClock)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidClock, src)
	}
}

func (c *Clock) scanString(value string) error {
	parsed, err := Parse(value)
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}
