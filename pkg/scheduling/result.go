package scheduling

import (
	"fmt"
	"time"
)

// LogType classifies a log entry of a run
type LogType string

// The log entry types
const (
	LogInfo    LogType = "info"
	LogWarning LogType = "warning"
)

// LogEntry is a single observability message produced by a run
type LogEntry struct {
	Type    LogType `json:"type"`
	Message string  `json:"message"`
}

// EventKind says which kind of item a planned event belongs to
type EventKind string

// The planned event kinds
const (
	EventKindHabit EventKind = "habit"
	EventKindTask  EventKind = "task"
	EventKindBreak EventKind = "break"
)

// Color hints derived from the availability category
const (
	ColorBlue  = "BLUE"
	ColorCyan  = "CYAN"
	ColorGreen = "GREEN"
	ColorGray  = "GRAY"
)

// ColorForCategory maps an availability category to its event color hint
func ColorForCategory(category Category) string {
	switch category {
	case CategoryWork:
		return ColorBlue
	case CategoryMeeting:
		return ColorCyan
	default:
		return ColorGreen
	}
}

// PlannedEvent is a calendar event the run wants created. IDs are derived from the
// owning item and slot index so that live and preview runs produce identical output.
type PlannedEvent struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	StartAt          time.Time `json:"startAt"`
	EndAt            time.Time `json:"endAt"`
	Kind             EventKind `json:"kind"`
	OwnerID          string    `json:"ownerId,omitempty"`
	OccurrenceDate   string    `json:"occurrenceDate,omitempty"`
	ScheduledMinutes int       `json:"scheduledMinutes,omitempty"`
	Category         Category  `json:"category,omitempty"`
	Color            string    `json:"color,omitempty"`
}

// HabitPlacement reports where a single habit occurrence ended up
type HabitPlacement struct {
	HabitID        string       `json:"habitId"`
	HabitName      string       `json:"habitName"`
	OccurrenceDate string       `json:"occurrenceDate"`
	Event          PlannedEvent `json:"event"`
	WasBumped      bool         `json:"wasBumped,omitempty"`
}

// TaskPlacement reports how much of a task could be placed
type TaskPlacement struct {
	TaskID           string         `json:"taskId"`
	TaskName         string         `json:"taskName"`
	Events           []PlannedEvent `json:"events"`
	ScheduledMinutes int            `json:"scheduledMinutes"`
	RemainingMinutes int            `json:"remainingMinutes"`
	PastDeadline     bool           `json:"pastDeadline,omitempty"`
}

// Summary aggregates counters over a whole run
type Summary struct {
	TotalEvents             int `json:"totalEvents"`
	HabitsScheduled         int `json:"habitsScheduled"`
	HabitsDropped           int `json:"habitsDropped"`
	TasksScheduled          int `json:"tasksScheduled"`
	TasksPartiallyScheduled int `json:"tasksPartiallyScheduled"`
	TasksUnscheduled        int `json:"tasksUnscheduled"`
	BumpedEvents            int `json:"bumpedEvents"`
	BreaksScheduled         int `json:"breaksScheduled"`
}

// Result is the complete outcome of a scheduling run
type Result struct {
	Events    []PlannedEvent   `json:"events"`
	DeleteIDs []string         `json:"deleteIds"`
	Logs      []LogEntry       `json:"logs"`
	Habits    []HabitPlacement `json:"habits"`
	Tasks     []TaskPlacement  `json:"tasks"`
	Summary   Summary          `json:"summary"`
}

func (r *Result) info(format string, args ...interface{}) {
	r.Logs = append(r.Logs, LogEntry{Type: LogInfo, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) warning(format string, args ...interface{}) {
	r.Logs = append(r.Logs, LogEntry{Type: LogWarning, Message: fmt.Sprintf(format, args...)})
}

// splitTitle renders the title of one part of a task split over several events
func splitTitle(name string, part int, total int) string {
	if total <= 1 {
		return name
	}
	return fmt.Sprintf("%s (%d/%d)", name, part, total)
}
