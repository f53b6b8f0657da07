package scheduling

import (
	"sort"
	"time"
)

// Priority is the explicit importance of a habit or task
type Priority string

// The priorities in descending order of importance
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityNormal   Priority = "normal"
	PriorityLow      Priority = "low"
)

// Deadline proximity thresholds for inferring a priority
const (
	criticalDeadlineThreshold = 24 * time.Hour
	highDeadlineThreshold     = 72 * time.Hour
	normalDeadlineThreshold   = 7 * 24 * time.Hour
)

var priorityRanks = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityNormal:   2,
	PriorityLow:      3,
}

// Rank returns the sort position of a priority, critical first.
// Unknown values rank after low.
func (p Priority) Rank() int {
	rank, ok := priorityRanks[p]
	if !ok {
		return len(priorityRanks)
	}
	return rank
}

// IsValid reports whether the value is one of the known priorities
func (p Priority) IsValid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// ComparePriority orders two priorities, negative when a is more important than b
func ComparePriority(a Priority, b Priority) int {
	return a.Rank() - b.Rank()
}

// EffectivePriority resolves the priority used for scheduling decisions.
// An explicit priority always wins, otherwise the deadline proximity decides.
func EffectivePriority(explicit *Priority, deadline *time.Time, now time.Time) Priority {
	if explicit != nil && explicit.IsValid() {
		return *explicit
	}

	if deadline == nil {
		return PriorityLow
	}

	untilDeadline := deadline.Sub(now)
	switch {
	case untilDeadline <= criticalDeadlineThreshold:
		return PriorityCritical
	case untilDeadline <= highDeadlineThreshold:
		return PriorityHigh
	case untilDeadline <= normalDeadlineThreshold:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// sortTasksForScheduling orders tasks by effective priority, then ascending deadline
// with absent deadlines last, then ascending remaining duration. The sort is stable
// so equal tasks keep their input order.
func sortTasksForScheduling(tasks []Task, now time.Time) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)

	sort.SliceStable(sorted, func(i, j int) bool {
		left := &sorted[i]
		right := &sorted[j]

		leftPriority := EffectivePriority(left.Priority, left.EndDate, now)
		rightPriority := EffectivePriority(right.Priority, right.EndDate, now)

		if comparison := ComparePriority(leftPriority, rightPriority); comparison != 0 {
			return comparison < 0
		}

		if left.EndDate != nil && right.EndDate != nil && !left.EndDate.Equal(*right.EndDate) {
			return left.EndDate.Before(*right.EndDate)
		}
		if (left.EndDate != nil) != (right.EndDate != nil) {
			return left.EndDate != nil
		}

		return left.RemainingMinutes() < right.RemainingMinutes()
	})

	return sorted
}
