package scheduling

import (
	"context"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WorkspaceSettings is the per-workspace configuration of the scheduler
type WorkspaceSettings struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	WorkspaceID primitive.ObjectID `json:"workspaceId" bson:"workspaceId"`
	Timezone    string             `json:"timezone" bson:"timezone" validate:"required"`
	WindowDays  int                `json:"windowDays,omitempty" bson:"windowDays,omitempty" validate:"omitempty,gte=1,lte=90"`
	Breaks      BreakSettings      `json:"breaks" bson:"breaks"`
}

// WorkspaceRepositoryInterface is the interface for workspace storage access
type WorkspaceRepositoryInterface interface {
	// FindSchedulableHabits returns the active, auto-scheduling habits of a workspace
	FindSchedulableHabits(ctx context.Context, workspaceID primitive.ObjectID) ([]Habit, error)

	// FindSchedulableTasks returns the open, auto-scheduling tasks of a workspace
	FindSchedulableTasks(ctx context.Context, workspaceID primitive.ObjectID) ([]Task, error)

	// FindSettings returns the workspace settings, with defaults when unconfigured
	FindSettings(ctx context.Context, workspaceID primitive.ObjectID) (*WorkspaceSettings, error)

	// FindHourSettings returns the availability configuration, with defaults when unconfigured
	FindHourSettings(ctx context.Context, workspaceID primitive.ObjectID) (*HourSettings, error)

	// AddScheduledMinutes moves a task's scheduled minutes counter by the given delta
	AddScheduledMinutes(ctx context.Context, workspaceID primitive.ObjectID, taskID primitive.ObjectID, minutes int) error
}

// MongoDBWorkspaceRepository does everything related to loading workspace data
type MongoDBWorkspaceRepository struct {
	HabitsCollection   *mongo.Collection
	TasksCollection    *mongo.Collection
	SettingsCollection *mongo.Collection
	HoursCollection    *mongo.Collection
	Logger             logger.Interface
}

// FindSchedulableHabits finds the active, auto-scheduling habits of a workspace
func (s *MongoDBWorkspaceRepository) FindSchedulableHabits(ctx context.Context, workspaceID primitive.ObjectID) ([]Habit, error) {
	cursor, err := s.HabitsCollection.Find(ctx, bson.M{
		"workspaceId":  workspaceID,
		"isActive":     true,
		"autoSchedule": true,
	}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}

	var habits []Habit
	err = cursor.All(ctx, &habits)
	if err != nil {
		return nil, err
	}

	return habits, nil
}

// FindSchedulableTasks finds the open, auto-scheduling tasks of a workspace
func (s *MongoDBWorkspaceRepository) FindSchedulableTasks(ctx context.Context, workspaceID primitive.ObjectID) ([]Task, error) {
	cursor, err := s.TasksCollection.Find(ctx, bson.M{
		"workspaceId":  workspaceID,
		"isDone":       false,
		"autoSchedule": true,
	}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}

	var tasks []Task
	err = cursor.All(ctx, &tasks)
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// FindSettings finds the workspace settings, falling back to UTC defaults
func (s *MongoDBWorkspaceRepository) FindSettings(ctx context.Context, workspaceID primitive.ObjectID) (*WorkspaceSettings, error) {
	settings := WorkspaceSettings{}

	err := s.SettingsCollection.FindOne(ctx, bson.M{"workspaceId": workspaceID}).Decode(&settings)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return &WorkspaceSettings{WorkspaceID: workspaceID, Timezone: "UTC"}, nil
		}
		return nil, err
	}

	if settings.Timezone == "" {
		settings.Timezone = "UTC"
	}

	return &settings, nil
}

// hourSettingsDocument is the stored shape of the availability configuration
type hourSettingsDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	WorkspaceID primitive.ObjectID `bson:"workspaceId"`
	Personal    WeekHours          `bson:"personal"`
	Work        WeekHours          `bson:"work"`
	Meeting     WeekHours          `bson:"meeting"`
}

// FindHourSettings finds the availability configuration of a workspace
func (s *MongoDBWorkspaceRepository) FindHourSettings(ctx context.Context, workspaceID primitive.ObjectID) (*HourSettings, error) {
	document := hourSettingsDocument{}

	err := s.HoursCollection.FindOne(ctx, bson.M{"workspaceId": workspaceID}).Decode(&document)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return DefaultHourSettings(), nil
		}
		return nil, err
	}

	return &HourSettings{
		Personal: document.Personal,
		Work:     document.Work,
		Meeting:  document.Meeting,
	}, nil
}

// AddScheduledMinutes moves a task's scheduled minutes counter by the given delta
func (s *MongoDBWorkspaceRepository) AddScheduledMinutes(ctx context.Context, workspaceID primitive.ObjectID, taskID primitive.ObjectID, minutes int) error {
	_, err := s.TasksCollection.UpdateOne(ctx, bson.M{
		"_id":         taskID,
		"workspaceId": workspaceID,
	}, bson.M{
		"$inc": bson.M{"scheduledMinutes": minutes},
		"$set": bson.M{"lastModifiedAt": time.Now()},
	})

	return err
}
