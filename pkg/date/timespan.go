package date

import (
	"fmt"
	"sort"
	"time"
)

// TimeBeforeOrEquals returns whether t1 is before or equal t2
func TimeBeforeOrEquals(t1 time.Time, t2 time.Time) bool {
	return !t1.After(t2)
}

// TimeAfterOrEquals returns whether t1 is after or equal t2
func TimeAfterOrEquals(t1 time.Time, t2 time.Time) bool {
	return !t1.Before(t2)
}

// Timespan is a simple timespan between two times/dates
type Timespan struct {
	Start time.Time `json:"start" bson:"start" validate:"required"`
	End   time.Time `json:"end" bson:"end"`
}

// Duration simply gets the duration of a Timespan
func (t *Timespan) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// IsStartBeforeEnd checks if start is earlier than end
func (t *Timespan) IsStartBeforeEnd() bool {
	return t.Start.Before(t.End)
}

// String prints a timespan string
func (t *Timespan) String() string {
	return fmt.Sprintf("%s - %s", t.Start, t.End)
}

// In changes the location on a Timespan
func (t *Timespan) In(location *time.Location) Timespan {
	t.Start = t.Start.In(location)
	t.End = t.End.In(location)

	return *t
}

// IntersectsWith checks if one timespan intersects with another
func (t *Timespan) IntersectsWith(timespan Timespan) bool {
	return t.Start.Before(timespan.End) && t.End.After(timespan.Start)
}

// Contains checks if the timespan t contains another Timespan timespan
func (t *Timespan) Contains(timespan Timespan) bool {
	return TimeAfterOrEquals(timespan.Start, t.Start) &&
		TimeBeforeOrEquals(timespan.End, t.End)
}

// ContainsInstant checks if an instant falls inside the timespan, start inclusive, end exclusive
func (t *Timespan) ContainsInstant(instant time.Time) bool {
	return TimeAfterOrEquals(instant, t.Start) && instant.Before(t.End)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// MergeTimespans merges Timespan structs together in case they overlap or touch, they don't have to be presorted
func MergeTimespans(timespans []Timespan) []Timespan {
	if len(timespans) == 0 {
		return nil
	}

	sorted := make([]Timespan, len(timespans))
	copy(sorted, timespans)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	index := 0

	for i := 1; i < len(sorted); i++ {
		if !sorted[index].End.Before(sorted[i].Start) {
			sorted[index].End = maxTime(sorted[index].End, sorted[i].End)
			sorted[index].Start = minTime(sorted[index].Start, sorted[i].Start)
		} else {
			index++
			sorted[index] = sorted[i]
		}
	}

	var merged []Timespan
	for i := 0; i <= index; i++ {
		merged = append(merged, sorted[i])
	}

	return merged
}

// SubtractBusy computes the gaps of a window that are not covered by any busy timespan.
// Busy entries outside the window are ignored, partially overlapping ones are clipped.
// The returned gaps are sorted by start time.
func SubtractBusy(window Timespan, busy []Timespan) []Timespan {
	if !window.IsStartBeforeEnd() {
		return nil
	}

	var relevant []Timespan
	for _, b := range busy {
		if !b.IntersectsWith(window) {
			continue
		}

		relevant = append(relevant, Timespan{
			Start: maxTime(b.Start, window.Start),
			End:   minTime(b.End, window.End),
		})
	}

	if len(relevant) == 0 {
		return []Timespan{window}
	}

	relevant = MergeTimespans(relevant)

	var free []Timespan
	cursor := window.Start

	for _, b := range relevant {
		if cursor.Before(b.Start) {
			free = append(free, Timespan{Start: cursor, End: b.Start})
		}
		cursor = maxTime(cursor, b.End)
	}

	if cursor.Before(window.End) {
		free = append(free, Timespan{Start: cursor, End: window.End})
	}

	return free
}

// SortByProximity sorts timespans by the absolute distance of their start to a target instant, closest first.
// Equal distances keep their relative order so repeated runs stay deterministic.
func SortByProximity(timespans []Timespan, target time.Time) {
	sort.SliceStable(timespans, func(i, j int) bool {
		di := absoluteOfDuration(timespans[i].Start.Sub(target))
		dj := absoluteOfDuration(timespans[j].Start.Sub(target))
		return di < dj
	})
}

func absoluteOfDuration(duration time.Duration) time.Duration {
	if duration < 0 {
		return -duration
	}
	return duration
}
