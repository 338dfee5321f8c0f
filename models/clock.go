package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Clock is a nullable time of day stored in a TIME column.
type Clock struct {
	Hour   int
	Minute int
	Valid  bool
}

// NewClock returns a valid Clock.
func NewClock(hour, minute int) Clock {
	return Clock{Hour: hour, Minute: minute, Valid: true}
}

// String renders HH:MM, or an empty string when the clock is not set.
func (c Clock) String() string {
	if !c.Valid {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Value implements driver.Valuer.
func (c Clock) Value() (driver.Value, error) {
	if !c.Valid {
		return nil, nil
	}
	return fmt.Sprintf("%02d:%02d:00", c.Hour, c.Minute), nil
}

// Scan implements sql.Scanner. lib/pq hands TIME columns over as time.Time.
func (c *Clock) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Clock{}
		return nil
	case time.Time:
		*c = NewClock(v.Hour(), v.Minute())
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	}
	return fmt.Errorf("clock: cannot scan %T", src)
}

func (c *Clock) parse(s string) error {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			*c = NewClock(t.Hour(), t.Minute())
			return nil
		}
	}
	return fmt.Errorf("clock: cannot parse %q", s)
}
