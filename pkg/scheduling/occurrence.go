package scheduling

import (
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
)

// OccurrencesInRange expands a habit's recurrence rule into local midnight instants
// inside [windowStart, windowEnd]. The result is ordered ascending. Dates before the
// habit's start date or after its end date are excluded.
func OccurrencesInRange(habit *Habit, windowStart time.Time, windowEnd time.Time, location *time.Location) []time.Time {
	if habit.Frequency == FrequencyCustom {
		return customOccurrences(habit, windowStart, windowEnd, location)
	}

	first := date.StartOfZonedDay(habit.StartDate, location)
	rangeStart := date.StartOfZonedDay(windowStart, location)
	rangeEnd := date.StartOfZonedDay(windowEnd, location)

	var lastAllowed *time.Time
	if habit.EndDate != nil {
		end := date.StartOfZonedDay(*habit.EndDate, location)
		lastAllowed = &end
	}

	var occurrences []time.Time
	interval := habit.Interval()

	for step := 0; ; step++ {
		occurrence := advanceOccurrence(first, habit.Frequency, interval*step, location)

		if occurrence.After(rangeEnd) {
			break
		}
		if lastAllowed != nil && occurrence.After(*lastAllowed) {
			break
		}
		if occurrence.Before(rangeStart) {
			continue
		}

		occurrences = append(occurrences, occurrence)
	}

	return occurrences
}

func customOccurrences(habit *Habit, windowStart time.Time, windowEnd time.Time, location *time.Location) []time.Time {
	rangeStart := date.StartOfZonedDay(windowStart, location)
	rangeEnd := date.StartOfZonedDay(windowEnd, location)
	first := date.StartOfZonedDay(habit.StartDate, location)

	var occurrences []time.Time
	for _, custom := range habit.CustomDates {
		occurrence := date.StartOfZonedDay(custom, location)

		if occurrence.Before(first) || occurrence.Before(rangeStart) || occurrence.After(rangeEnd) {
			continue
		}
		if habit.EndDate != nil && occurrence.After(date.StartOfZonedDay(*habit.EndDate, location)) {
			continue
		}

		occurrences = append(occurrences, occurrence)
	}

	return occurrences
}

// advanceOccurrence moves the first occurrence forward by the given number of
// frequency units, anchored to the start date rather than the previous occurrence
// so that month-end clamping never drifts.
func advanceOccurrence(first time.Time, frequency Frequency, units int, location *time.Location) time.Time {
	local := first.In(location)

	switch frequency {
	case FrequencyDaily:
		return time.Date(local.Year(), local.Month(), local.Day()+units, 0, 0, 0, 0, location).UTC()
	case FrequencyWeekly:
		return time.Date(local.Year(), local.Month(), local.Day()+7*units, 0, 0, 0, 0, location).UTC()
	case FrequencyMonthly:
		return addMonthsClamped(local, units, location)
	case FrequencyYearly:
		return addYearsClamped(local, units, location)
	default:
		return first
	}
}

// addMonthsClamped adds months keeping the day-of-month, clamped to the last day of
// shorter months instead of overflowing into the next month the way AddDate does.
func addMonthsClamped(local time.Time, months int, location *time.Location) time.Time {
	year := local.Year()
	month := int(local.Month()) + months

	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}

	day := local.Day()
	if last := lastDayOfMonth(year, time.Month(month)); day > last {
		day = last
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, location).UTC()
}

func addYearsClamped(local time.Time, years int, location *time.Location) time.Time {
	year := local.Year() + years

	day := local.Day()
	if last := lastDayOfMonth(year, local.Month()); day > last {
		day = last
	}

	return time.Date(year, local.Month(), day, 0, 0, 0, 0, location).UTC()
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
