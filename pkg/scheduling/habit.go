package scheduling

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Frequency describes the recurrence rule of a habit
type Frequency string

// The supported recurrence frequencies
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
	FrequencyCustom  Frequency = "custom"
)

// TimePreference is a coarse daypart wish for a habit without an exact ideal time
type TimePreference string

// The supported dayparts
const (
	PreferenceMorning   TimePreference = "morning"
	PreferenceAfternoon TimePreference = "afternoon"
	PreferenceEvening   TimePreference = "evening"
	PreferenceNight     TimePreference = "night"
)

// ClockRange returns the daypart as start and end hours of the local day
func (p TimePreference) ClockRange() (int, int, bool) {
	switch p {
	case PreferenceMorning:
		return 5, 12, true
	case PreferenceAfternoon:
		return 12, 17, true
	case PreferenceEvening:
		return 17, 21, true
	case PreferenceNight:
		return 21, 24, true
	default:
		return 0, 0, false
	}
}

// Habit is the model for a recurring activity
type Habit struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	WorkspaceID    primitive.ObjectID `json:"workspaceId" bson:"workspaceId" validate:"required"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Name           string             `json:"name" bson:"name" validate:"required"`
	Description    string             `json:"description" bson:"description"`

	Frequency          Frequency   `json:"frequency" bson:"frequency" validate:"required,oneof=daily weekly monthly yearly custom"`
	RecurrenceInterval int         `json:"recurrenceInterval" bson:"recurrenceInterval" validate:"omitempty,gte=1"`
	StartDate          time.Time   `json:"startDate" bson:"startDate" validate:"required"`
	EndDate            *time.Time  `json:"endDate,omitempty" bson:"endDate,omitempty"`
	CustomDates        []time.Time `json:"customDates,omitempty" bson:"customDates,omitempty"`

	DurationMinutes    int `json:"durationMinutes" bson:"durationMinutes" validate:"required,gt=0"`
	MinDurationMinutes int `json:"minDurationMinutes,omitempty" bson:"minDurationMinutes,omitempty" validate:"omitempty,gt=0"`
	MaxDurationMinutes int `json:"maxDurationMinutes,omitempty" bson:"maxDurationMinutes,omitempty" validate:"omitempty,gt=0"`

	IdealTime      string         `json:"idealTime,omitempty" bson:"idealTime,omitempty"`
	TimePreference TimePreference `json:"timePreference,omitempty" bson:"timePreference,omitempty" validate:"omitempty,oneof=morning afternoon evening night"`

	CalendarHours Category `json:"calendarHours" bson:"calendarHours" validate:"omitempty,oneof=personal work meeting"`
	Priority      Priority `json:"priority,omitempty" bson:"priority,omitempty" validate:"omitempty,oneof=critical high normal low"`

	AutoSchedule bool `json:"autoSchedule" bson:"autoSchedule"`
	IsActive     bool `json:"isActive" bson:"isActive"`
}

// Interval returns the recurrence interval with the implicit default of 1
func (h *Habit) Interval() int {
	if h.RecurrenceInterval < 1 {
		return 1
	}
	return h.RecurrenceInterval
}

// EffectivePriority resolves the habit's scheduling priority, habits never have deadlines
func (h *Habit) EffectivePriority() Priority {
	if h.Priority.IsValid() {
		return h.Priority
	}
	return PriorityNormal
}

// Category returns the availability category, defaulting to personal
func (h *Habit) Category() Category {
	if h.CalendarHours == "" {
		return CategoryPersonal
	}
	return h.CalendarHours
}

// DurationBounds returns the preferred duration and the negotiation bounds of a habit
func (h *Habit) DurationBounds() DurationBounds {
	preferred := time.Duration(h.DurationMinutes) * time.Minute

	bounds := DurationBounds{Preferred: preferred, Min: preferred, Max: preferred}
	if h.MinDurationMinutes > 0 && h.MinDurationMinutes < h.DurationMinutes {
		bounds.Min = time.Duration(h.MinDurationMinutes) * time.Minute
	}
	if h.MaxDurationMinutes > 0 && h.MaxDurationMinutes > h.DurationMinutes {
		bounds.Max = time.Duration(h.MaxDurationMinutes) * time.Minute
	}

	return bounds
}

// HasFixedTime reports whether the habit wishes for a specific time of day
func (h *Habit) HasFixedTime() bool {
	return h.IdealTime != ""
}

// HasTimePreference reports whether the habit wishes for a daypart
func (h *Habit) HasTimePreference() bool {
	_, _, ok := h.TimePreference.ClockRange()
	return ok
}
