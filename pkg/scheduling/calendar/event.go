package calendar

import (
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a calendar event as stored for a workspace
type Event struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	WorkspaceID    primitive.ObjectID `json:"workspaceId" bson:"workspaceId" validate:"required"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	LastModifiedAt time.Time          `json:"lastModifiedAt" bson:"lastModifiedAt"`
	Title          string             `json:"title" bson:"title" validate:"required"`
	Date           date.Timespan      `json:"date" bson:"date" validate:"required"`
	Timezone       string             `json:"timezone,omitempty" bson:"timezone,omitempty"`
	Locked         bool               `json:"locked" bson:"locked"`
	Color          string             `json:"color,omitempty" bson:"color,omitempty"`

	// Link is populated by the repository when the event was generated by a
	// scheduler run, it never round-trips through the events collection itself
	Link *Link `json:"link,omitempty" bson:"-"`
}

// LinkKind says which kind of item an event was generated for
type LinkKind string

// The link kinds
const (
	LinkKindHabit LinkKind = "habit"
	LinkKindTask  LinkKind = "task"
	LinkKindBreak LinkKind = "break"
)

// Link connects a generated event to the habit or task it was scheduled for
type Link struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	WorkspaceID      primitive.ObjectID `json:"workspaceId" bson:"workspaceId"`
	EventID          primitive.ObjectID `json:"eventId" bson:"eventId" validate:"required"`
	Kind             LinkKind           `json:"kind" bson:"kind" validate:"required,oneof=habit task break"`
	OwnerID          string             `json:"ownerId" bson:"ownerId"`
	OccurrenceDate   string             `json:"occurrenceDate,omitempty" bson:"occurrenceDate,omitempty"`
	ScheduledMinutes int                `json:"scheduledMinutes,omitempty" bson:"scheduledMinutes,omitempty"`
}

// IsAllDay reports whether the event spans an exact multiple of 24 hours aligned to
// local midnight in the event's own timezone. All-day events never block scheduling.
func (e *Event) IsAllDay() bool {
	duration := e.Date.Duration()
	if duration <= 0 || duration%(24*time.Hour) != 0 {
		return false
	}

	location := time.UTC
	if e.Timezone != "" {
		if loc, err := date.LoadTimezone(e.Timezone); err == nil {
			location = loc
		}
	}

	return e.Date.Start.Equal(date.StartOfZonedDay(e.Date.Start, location)) &&
		e.Date.End.Equal(date.StartOfZonedDay(e.Date.End, location))
}

// IsGenerated reports whether the event was created by a scheduler run
func (e *Event) IsGenerated() bool {
	return e.Link != nil
}
