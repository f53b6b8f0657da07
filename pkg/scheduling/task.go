package scheduling

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task is the model for a deadline-bound work item
type Task struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	WorkspaceID    primitive.ObjectID `json:"workspaceId" bson:"workspaceId" validate:"required"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	Description    string             `json:"description" bson:"description"`
	IsDone         bool               `json:"isDone" bson:"isDone"`

	TotalDurationMinutes int `json:"totalDurationMinutes" bson:"totalDurationMinutes" validate:"required,gt=0"`
	ScheduledMinutes     int `json:"scheduledMinutes" bson:"scheduledMinutes" validate:"omitempty,gte=0"`

	IsSplittable            bool `json:"isSplittable" bson:"isSplittable"`
	MinSplitDurationMinutes int  `json:"minSplitDurationMinutes,omitempty" bson:"minSplitDurationMinutes,omitempty" validate:"omitempty,gt=0"`
	MaxSplitDurationMinutes int  `json:"maxSplitDurationMinutes,omitempty" bson:"maxSplitDurationMinutes,omitempty" validate:"omitempty,gt=0"`

	CalendarHours Category  `json:"calendarHours" bson:"calendarHours" validate:"omitempty,oneof=personal work meeting"`
	Priority      *Priority `json:"priority,omitempty" bson:"priority,omitempty" validate:"omitempty,oneof=critical high normal low"`

	StartDate *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`

	AutoSchedule bool `json:"autoSchedule" bson:"autoSchedule"`
}

// Default split chunk bounds for splittable tasks without explicit values
const (
	defaultMinSplitMinutes = 30
	defaultMaxSplitMinutes = 120
)

// RemainingMinutes returns the minutes still to be placed on the calendar
func (t *Task) RemainingMinutes() int {
	remaining := t.TotalDurationMinutes - t.ScheduledMinutes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Category returns the availability category, defaulting to work
func (t *Task) Category() Category {
	if t.CalendarHours == "" {
		return CategoryWork
	}
	return t.CalendarHours
}

// SplitBounds returns the chunk duration bounds used when placing a splittable task
func (t *Task) SplitBounds() (time.Duration, time.Duration) {
	minSplit := defaultMinSplitMinutes
	if t.MinSplitDurationMinutes > 0 {
		minSplit = t.MinSplitDurationMinutes
	}

	maxSplit := defaultMaxSplitMinutes
	if t.MaxSplitDurationMinutes > 0 {
		maxSplit = t.MaxSplitDurationMinutes
	}

	if maxSplit < minSplit {
		maxSplit = minSplit
	}

	return time.Duration(minSplit) * time.Minute, time.Duration(maxSplit) * time.Minute
}
