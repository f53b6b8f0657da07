package calendar

import (
	"context"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockCalendarRepository is an event repository for testing
type MockCalendarRepository struct {
	Events []*Event

	// FailEventTitles makes CreateEvent fail for matching titles to exercise
	// partial failure handling
	FailEventTitles map[string]error

	CreateCalls int
	DeleteCalls int
}

// FindEventsInWindow finds all events of a workspace overlapping a window
func (m *MockCalendarRepository) FindEventsInWindow(_ context.Context, workspaceID primitive.ObjectID, window date.Timespan) ([]*Event, error) {
	var events []*Event
	for _, event := range m.Events {
		if event.WorkspaceID == workspaceID && event.Date.IntersectsWith(window) {
			events = append(events, event)
		}
	}

	return events, nil
}

// CreateEvent stores a new event and its optional generation link
func (m *MockCalendarRepository) CreateEvent(_ context.Context, event *Event, link *Link) error {
	m.CreateCalls++

	if err, ok := m.FailEventTitles[event.Title]; ok {
		return err
	}

	event.CreatedAt = time.Now()
	event.LastModifiedAt = time.Now()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}

	if link != nil {
		link.ID = primitive.NewObjectID()
		link.WorkspaceID = event.WorkspaceID
		link.EventID = event.ID
		event.Link = link
	}

	m.Events = append(m.Events, event)
	return nil
}

// DeleteEvent removes an event
func (m *MockCalendarRepository) DeleteEvent(_ context.Context, workspaceID primitive.ObjectID, eventID primitive.ObjectID) error {
	m.DeleteCalls++

	for i, event := range m.Events {
		if event.ID == eventID && event.WorkspaceID == workspaceID {
			m.Events = append(m.Events[:i], m.Events[i+1:]...)
			return nil
		}
	}

	return nil
}
