package calendar

import (
	"context"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RepositoryInterface is the interface for event storage access
type RepositoryInterface interface {
	// FindEventsInWindow returns all events of a workspace overlapping the window,
	// with their generation links populated
	FindEventsInWindow(ctx context.Context, workspaceID primitive.ObjectID, window date.Timespan) ([]*Event, error)

	// CreateEvent persists a new event, optionally together with its generation link
	CreateEvent(ctx context.Context, event *Event, link *Link) error

	// DeleteEvent removes an event and its link
	DeleteEvent(ctx context.Context, workspaceID primitive.ObjectID, eventID primitive.ObjectID) error
}
