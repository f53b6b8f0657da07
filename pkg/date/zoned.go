package date

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidTimezone is returned when a timezone identifier cannot be resolved
var ErrInvalidTimezone = errors.New("invalid timezone identifier")

// WallClock is a naive local date and time without any zone attached
type WallClock struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
}

// LoadTimezone resolves an IANA timezone identifier into a location
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" {
		return nil, errors.Wrap(ErrInvalidTimezone, "empty identifier")
	}

	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTimezone, "could not resolve %q", name)
	}

	return location, nil
}

// ToUTCInstant interprets a wall clock reading in the given location and returns the UTC instant.
// Readings that fall into a DST gap resolve to the instant the zone rules map them to.
func ToUTCInstant(clock WallClock, location *time.Location) time.Time {
	return time.Date(clock.Year, clock.Month, clock.Day, clock.Hour, clock.Minute, 0, 0, location).UTC()
}

// ToZonedParts converts a UTC instant into the wall clock reading of the given location
func ToZonedParts(instant time.Time, location *time.Location) WallClock {
	local := instant.In(location)

	return WallClock{
		Year:   local.Year(),
		Month:  local.Month(),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
	}
}

// WeekdayOf returns the weekday an instant falls on in the given location
func WeekdayOf(instant time.Time, location *time.Location) time.Weekday {
	return instant.In(location).Weekday()
}

// StartOfZonedDay returns the UTC instant of local midnight of the day the instant falls on
func StartOfZonedDay(instant time.Time, location *time.Location) time.Time {
	local := instant.In(location)

	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location).UTC()
}

// AddZonedDays shifts an instant by whole calendar days in the given location, keeping
// the wall clock reading stable across DST transitions where possible
func AddZonedDays(instant time.Time, location *time.Location, days int) time.Time {
	local := instant.In(location)

	return time.Date(local.Year(), local.Month(), local.Day()+days,
		local.Hour(), local.Minute(), local.Second(), local.Nanosecond(), location).UTC()
}

// LocalDateString formats the local calendar date of an instant as YYYY-MM-DD
func LocalDateString(instant time.Time, location *time.Location) string {
	return instant.In(location).Format("2006-01-02")
}

// ParseClock parses a HH:MM string into its hour and minute components
func ParseClock(value string) (int, int, error) {
	var hour, minute int

	n, err := fmt.Sscanf(value, "%d:%d", &hour, &minute)
	if err != nil || n != 2 {
		return 0, 0, errors.Errorf("could not parse clock value %q", value)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, errors.Errorf("clock value %q out of range", value)
	}

	return hour, minute, nil
}
