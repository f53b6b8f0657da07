package calendar

import (
	"context"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"github.com/dayplan-app/dayplan-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBCalendarRepository does everything related to storing and finding events
type MongoDBCalendarRepository struct {
	EventsCollection *mongo.Collection
	LinksCollection  *mongo.Collection
	Logger           logger.Interface
}

// FindEventsInWindow finds all events of a workspace overlapping a window and
// populates their generation links
func (s *MongoDBCalendarRepository) FindEventsInWindow(ctx context.Context, workspaceID primitive.ObjectID, window date.Timespan) ([]*Event, error) {
	filter := bson.M{
		"workspaceId": workspaceID,
		"date.start":  bson.M{"$lt": window.End},
		"date.end":    bson.M{"$gt": window.Start},
	}

	findOptions := options.Find().SetSort(bson.M{"date.start": 1})

	cursor, err := s.EventsCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}

	var events []*Event
	err = cursor.All(ctx, &events)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return events, nil
	}

	eventIDs := make([]primitive.ObjectID, 0, len(events))
	for _, event := range events {
		eventIDs = append(eventIDs, event.ID)
	}

	linkCursor, err := s.LinksCollection.Find(ctx, bson.M{
		"workspaceId": workspaceID,
		"eventId":     bson.M{"$in": eventIDs},
	})
	if err != nil {
		return nil, err
	}

	var links []*Link
	err = linkCursor.All(ctx, &links)
	if err != nil {
		return nil, err
	}

	linksByEvent := make(map[primitive.ObjectID]*Link, len(links))
	for _, link := range links {
		linksByEvent[link.EventID] = link
	}

	for _, event := range events {
		event.Link = linksByEvent[event.ID]
	}

	return events, nil
}

// CreateEvent persists a new event and its optional generation link
func (s *MongoDBCalendarRepository) CreateEvent(ctx context.Context, event *Event, link *Link) error {
	event.CreatedAt = time.Now()
	event.LastModifiedAt = time.Now()
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}

	_, err := s.EventsCollection.InsertOne(ctx, event)
	if err != nil {
		return err
	}

	if link == nil {
		event.Link = nil
		return nil
	}

	link.ID = primitive.NewObjectID()
	link.WorkspaceID = event.WorkspaceID
	link.EventID = event.ID

	_, err = s.LinksCollection.InsertOne(ctx, link)
	if err != nil {
		return err
	}

	event.Link = link

	return nil
}

// DeleteEvent removes an event and its link
func (s *MongoDBCalendarRepository) DeleteEvent(ctx context.Context, workspaceID primitive.ObjectID, eventID primitive.ObjectID) error {
	_, err := s.EventsCollection.DeleteOne(ctx, bson.M{
		"_id":         eventID,
		"workspaceId": workspaceID,
	})
	if err != nil {
		return err
	}

	_, err = s.LinksCollection.DeleteMany(ctx, bson.M{
		"eventId":     eventID,
		"workspaceId": workspaceID,
	})

	return err
}
