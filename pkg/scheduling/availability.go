package scheduling

import (
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"github.com/pkg/errors"
)

// Category selects which weekly availability windows apply to an item
type Category string

// The availability categories
const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryMeeting  Category = "meeting"
)

// TimeBlock is a single availability window within a day, wall clock HH:MM values
type TimeBlock struct {
	StartTime string `json:"startTime" bson:"startTime" validate:"required"`
	EndTime   string `json:"endTime" bson:"endTime" validate:"required"`
}

// DayHours is the availability of a single weekday
type DayHours struct {
	Enabled    bool        `json:"enabled" bson:"enabled"`
	TimeBlocks []TimeBlock `json:"timeBlocks" bson:"timeBlocks"`
}

// WeekHours maps every weekday to its availability, indexed by time.Weekday
type WeekHours [7]DayHours

// HourSettings is the per-category weekly availability configuration of a workspace
type HourSettings struct {
	Personal WeekHours `json:"personal" bson:"personal"`
	Work     WeekHours `json:"work" bson:"work"`
	Meeting  WeekHours `json:"meeting" bson:"meeting"`
}

// DefaultWeekHours returns a week that is available 07:00 to 23:00 every day
func DefaultWeekHours() WeekHours {
	var week WeekHours
	for day := range week {
		week[day] = DayHours{
			Enabled:    true,
			TimeBlocks: []TimeBlock{{StartTime: "07:00", EndTime: "23:00"}},
		}
	}
	return week
}

// DefaultHourSettings returns the configuration used when a workspace has none
func DefaultHourSettings() *HourSettings {
	return &HourSettings{
		Personal: DefaultWeekHours(),
		Work:     DefaultWeekHours(),
		Meeting:  DefaultWeekHours(),
	}
}

// ForCategory returns the week hours of a category
func (s *HourSettings) ForCategory(category Category) WeekHours {
	switch category {
	case CategoryWork:
		return s.Work
	case CategoryMeeting:
		return s.Meeting
	default:
		return s.Personal
	}
}

// Validate checks that all time blocks parse, run forward and don't overlap within a day
func (s *HourSettings) Validate() error {
	for _, week := range []WeekHours{s.Personal, s.Work, s.Meeting} {
		for day, hours := range week {
			if !hours.Enabled {
				continue
			}

			previousEnd := -1
			for _, block := range hours.TimeBlocks {
				startHour, startMinute, err := date.ParseClock(block.StartTime)
				if err != nil {
					return errors.Wrapf(err, "invalid start time on %s", time.Weekday(day))
				}

				endHour, endMinute, err := date.ParseClock(block.EndTime)
				if err != nil {
					return errors.Wrapf(err, "invalid end time on %s", time.Weekday(day))
				}

				start := startHour*60 + startMinute
				end := endHour*60 + endMinute

				if start >= end {
					return errors.Errorf("time block %s-%s on %s does not run forward",
						block.StartTime, block.EndTime, time.Weekday(day))
				}

				if start < previousEnd {
					return errors.Errorf("time blocks on %s overlap or are unsorted", time.Weekday(day))
				}
				previousEnd = end
			}
		}
	}

	return nil
}

// windowsForDay converts the time blocks of the weekday that dayStart falls on into
// UTC timespans. dayStart has to be a local midnight instant of the given location.
func windowsForDay(dayStart time.Time, week WeekHours, location *time.Location) []date.Timespan {
	local := dayStart.In(location)
	hours := week[local.Weekday()]

	if !hours.Enabled {
		return nil
	}

	var windows []date.Timespan
	for _, block := range hours.TimeBlocks {
		startHour, startMinute, err := date.ParseClock(block.StartTime)
		if err != nil {
			continue
		}
		endHour, endMinute, err := date.ParseClock(block.EndTime)
		if err != nil {
			continue
		}

		windows = append(windows, date.Timespan{
			Start: time.Date(local.Year(), local.Month(), local.Day(), startHour, startMinute, 0, 0, location).UTC(),
			End:   time.Date(local.Year(), local.Month(), local.Day(), endHour, endMinute, 0, 0, location).UTC(),
		})
	}

	return windows
}
