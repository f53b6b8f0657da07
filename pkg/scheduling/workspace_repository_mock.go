package scheduling

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockWorkspaceRepository is a workspace repository for testing
type MockWorkspaceRepository struct {
	Habits   []Habit
	Tasks    []Task
	Settings *WorkspaceSettings
	Hours    *HourSettings

	ScheduledMinuteChanges map[string]int
}

// FindSchedulableHabits returns the active, auto-scheduling habits of a workspace
func (m *MockWorkspaceRepository) FindSchedulableHabits(_ context.Context, workspaceID primitive.ObjectID) ([]Habit, error) {
	var habits []Habit
	for _, habit := range m.Habits {
		if habit.WorkspaceID == workspaceID && habit.IsActive && habit.AutoSchedule {
			habits = append(habits, habit)
		}
	}
	return habits, nil
}

// FindSchedulableTasks returns the open, auto-scheduling tasks of a workspace
func (m *MockWorkspaceRepository) FindSchedulableTasks(_ context.Context, workspaceID primitive.ObjectID) ([]Task, error) {
	var tasks []Task
	for _, task := range m.Tasks {
		if task.WorkspaceID == workspaceID && !task.IsDone && task.AutoSchedule {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// FindSettings returns the configured settings or UTC defaults
func (m *MockWorkspaceRepository) FindSettings(_ context.Context, workspaceID primitive.ObjectID) (*WorkspaceSettings, error) {
	if m.Settings != nil {
		return m.Settings, nil
	}
	return &WorkspaceSettings{WorkspaceID: workspaceID, Timezone: "UTC"}, nil
}

// FindHourSettings returns the configured availability or the defaults
func (m *MockWorkspaceRepository) FindHourSettings(_ context.Context, _ primitive.ObjectID) (*HourSettings, error) {
	if m.Hours != nil {
		return m.Hours, nil
	}
	return DefaultHourSettings(), nil
}

// AddScheduledMinutes records the scheduled minute changes per task
func (m *MockWorkspaceRepository) AddScheduledMinutes(_ context.Context, _ primitive.ObjectID, taskID primitive.ObjectID, minutes int) error {
	if m.ScheduledMinuteChanges == nil {
		m.ScheduledMinuteChanges = make(map[string]int)
	}
	m.ScheduledMinuteChanges[taskID.Hex()] += minutes

	for i := range m.Tasks {
		if m.Tasks[i].ID == taskID {
			m.Tasks[i].ScheduledMinutes += minutes
		}
	}

	return nil
}
