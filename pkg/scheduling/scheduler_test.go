package scheduling

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"github.com/dayplan-app/dayplan-backend/pkg/scheduling/calendar"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) // a Monday

func newTestHabit(name string) Habit {
	return Habit{
		ID:              primitive.NewObjectID(),
		WorkspaceID:     primitive.NewObjectID(),
		Name:            name,
		Frequency:       FrequencyDaily,
		StartDate:       testNow,
		DurationMinutes: 60,
		AutoSchedule:    true,
		IsActive:        true,
	}
}

func newTestTask(name string, minutes int) Task {
	return Task{
		ID:                   primitive.NewObjectID(),
		WorkspaceID:          primitive.NewObjectID(),
		Name:                 name,
		TotalDurationMinutes: minutes,
		AutoSchedule:         true,
	}
}

func assertNoOverlaps(t *testing.T, events []PlannedEvent, existing []calendar.Event) {
	t.Helper()

	var spans []date.Timespan
	for _, event := range events {
		spans = append(spans, date.Timespan{Start: event.StartAt, End: event.EndAt})
	}
	for _, event := range existing {
		spans = append(spans, event.Date)
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].IntersectsWith(spans[j]) {
				t.Errorf("events overlap: %v and %v", spans[i], spans[j])
			}
		}
	}
}

func hasLogContaining(logs []LogEntry, logType LogType, fragment string) bool {
	for _, entry := range logs {
		if entry.Type == logType && strings.Contains(entry.Message, fragment) {
			return true
		}
	}
	return false
}

func TestRun_HabitAtIdealTime(t *testing.T) {
	habit := newTestHabit("Evening run")
	habit.IdealTime = "18:30"
	habit.EndDate = timePointer(testNow)

	result, err := Run(&Input{
		Now:      testNow,
		Timezone: "UTC",
		Habits:   []Habit{habit},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}

	event := result.Events[0]
	wantStart := time.Date(2025, 12, 1, 18, 30, 0, 0, time.UTC)
	if !event.StartAt.Equal(wantStart) {
		t.Errorf("got start %v, want %v", event.StartAt, wantStart)
	}
	if !event.EndAt.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("got end %v", event.EndAt)
	}
	if event.OccurrenceDate != "2025-12-01" {
		t.Errorf("got occurrence date %s", event.OccurrenceDate)
	}
	if event.Color != ColorGreen {
		t.Errorf("personal events should be green, got %s", event.Color)
	}
	if result.Summary.HabitsScheduled != 1 {
		t.Errorf("summary: %+v", result.Summary)
	}
}

func TestRun_HabitIdealTimeInBangkok(t *testing.T) {
	// 09:00 in Asia/Bangkok on 2025-12-13 is 02:00 UTC
	habit := newTestHabit("Morning pages")
	habit.Frequency = FrequencyWeekly
	habit.StartDate = time.Date(2025, 12, 13, 0, 0, 0, 0, time.UTC)
	habit.EndDate = timePointer(habit.StartDate)
	habit.IdealTime = "09:00"

	result, err := Run(&Input{
		Now:        time.Date(2025, 12, 12, 12, 0, 0, 0, time.UTC),
		Timezone:   "Asia/Bangkok",
		WindowDays: 2,
		Habits:     []Habit{habit},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(result.Events), result.Logs)
	}

	wantStart := time.Date(2025, 12, 13, 2, 0, 0, 0, time.UTC)
	if !result.Events[0].StartAt.Equal(wantStart) {
		t.Errorf("got start %v, want %v", result.Events[0].StartAt, wantStart)
	}
	if result.Events[0].OccurrenceDate != "2025-12-13" {
		t.Errorf("got occurrence date %s", result.Events[0].OccurrenceDate)
	}
}

func TestRun_DeterministicAndNonOverlapping(t *testing.T) {
	habitA := newTestHabit("Reading")
	habitB := newTestHabit("Workout")
	habitC := newTestHabit("Language practice")
	habitC.TimePreference = PreferenceEvening

	deadline := testNow.Add(3 * 24 * time.Hour)
	taskA := newTestTask("Quarterly report", 180)
	taskA.IsSplittable = true
	taskA.EndDate = &deadline
	taskB := newTestTask("Expense review", 60)

	locked := calendar.Event{
		ID:          primitive.NewObjectID(),
		WorkspaceID: habitA.WorkspaceID,
		Title:       "Dentist",
		Locked:      true,
		Date: date.Timespan{
			Start: time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 1, 11, 0, 0, 0, time.UTC),
		},
	}

	input := &Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 3,
		Habits:     []Habit{habitA, habitB, habitC},
		Tasks:      []Task{taskA, taskB},
		Events:     []calendar.Event{locked},
	}

	first, err := Run(input, nil)
	if err != nil {
		t.Fatal(err)
	}

	second, err := Run(input, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same input should produce identical results")
	}

	assertNoOverlaps(t, first.Events, input.Events)

	if first.Summary.TotalEvents != len(first.Events) {
		t.Errorf("summary event count mismatch: %+v", first.Summary)
	}
}

func TestRun_SkipsAlreadyScheduledOccurrences(t *testing.T) {
	habit := newTestHabit("Journaling")

	existing := calendar.Event{
		ID:          primitive.NewObjectID(),
		WorkspaceID: habit.WorkspaceID,
		Title:       "Journaling",
		Date: date.Timespan{
			Start: time.Date(2025, 12, 1, 18, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 1, 19, 0, 0, 0, time.UTC),
		},
		Link: &calendar.Link{
			Kind:           calendar.LinkKindHabit,
			OwnerID:        habit.ID.Hex(),
			OccurrenceDate: "2025-12-01",
		},
	}

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 2,
		Habits:     []Habit{habit},
		Events:     []calendar.Event{existing},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Habits) != 1 {
		t.Fatalf("expected exactly one new placement, got %d", len(result.Habits))
	}
	if result.Habits[0].OccurrenceDate != "2025-12-02" {
		t.Errorf("got occurrence date %s, want 2025-12-02", result.Habits[0].OccurrenceDate)
	}
	if len(result.DeleteIDs) != 0 {
		t.Errorf("nothing should be deleted, got %v", result.DeleteIDs)
	}
}

func TestRun_TaskPrefersPreDeadlineSlots(t *testing.T) {
	deadline := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	task := newTestTask("Submit filing", 60)
	task.EndDate = &deadline

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 7,
		Tasks:      []Task{task},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	if result.Events[0].EndAt.After(deadline) {
		t.Errorf("event ends after the deadline: %v", result.Events[0].EndAt)
	}
	if result.Tasks[0].PastDeadline {
		t.Error("placement should not be flagged past deadline")
	}
	if result.Events[0].Color != ColorBlue {
		t.Errorf("work events should be blue, got %s", result.Events[0].Color)
	}
}

func TestRun_TaskFallsBackPastDeadline(t *testing.T) {
	hours := &HourSettings{}
	hours.Work[time.Monday] = DayHours{
		Enabled:    true,
		TimeBlocks: []TimeBlock{{StartTime: "14:00", EndTime: "16:00"}},
	}

	deadline := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	task := newTestTask("Late filing", 60)
	task.EndDate = &deadline

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 7,
		Hours:      hours,
		Tasks:      []Task{task},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d: %v", len(result.Events), result.Logs)
	}

	wantStart := time.Date(2025, 12, 1, 14, 0, 0, 0, time.UTC)
	if !result.Events[0].StartAt.Equal(wantStart) {
		t.Errorf("got start %v, want %v", result.Events[0].StartAt, wantStart)
	}
	if !result.Tasks[0].PastDeadline {
		t.Error("placement should be flagged past deadline")
	}
	if !hasLogContaining(result.Logs, LogWarning, "past its deadline") {
		t.Errorf("expected a past-deadline warning, got %v", result.Logs)
	}
}

func TestRun_UrgentTaskBumpsHabit(t *testing.T) {
	hours := &HourSettings{}
	hours.Personal[time.Monday] = DayHours{
		Enabled:    true,
		TimeBlocks: []TimeBlock{{StartTime: "09:00", EndTime: "10:00"}},
	}
	hours.Work[time.Monday] = DayHours{
		Enabled:    true,
		TimeBlocks: []TimeBlock{{StartTime: "09:00", EndTime: "10:00"}},
	}

	habit := newTestHabit("Yoga")
	habit.Frequency = FrequencyWeekly
	habit.EndDate = timePointer(testNow.Add(4 * 24 * time.Hour))

	deadline := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	task := newTestTask("Board deck", 60)
	task.EndDate = &deadline

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 14,
		Hours:      hours,
		Habits:     []Habit{habit},
		Tasks:      []Task{task},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(result.Events), result.Logs)
	}

	var taskEvent, habitEvent *PlannedEvent
	for i := range result.Events {
		switch result.Events[i].Kind {
		case EventKindTask:
			taskEvent = &result.Events[i]
		case EventKindHabit:
			habitEvent = &result.Events[i]
		}
	}
	if taskEvent == nil || habitEvent == nil {
		t.Fatalf("expected one task and one habit event: %v", result.Events)
	}

	// The urgent task takes the only pre-deadline capacity
	wantTaskStart := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	if !taskEvent.StartAt.Equal(wantTaskStart) {
		t.Errorf("got task start %v, want %v", taskEvent.StartAt, wantTaskStart)
	}

	// The bumped habit moves to the next Monday inside its reschedule range
	wantHabitStart := time.Date(2025, 12, 8, 9, 0, 0, 0, time.UTC)
	if !habitEvent.StartAt.Equal(wantHabitStart) {
		t.Errorf("got habit start %v, want %v", habitEvent.StartAt, wantHabitStart)
	}

	if len(result.Habits) != 1 || !result.Habits[0].WasBumped {
		t.Errorf("habit placement should be marked bumped: %+v", result.Habits)
	}
	if result.Habits[0].OccurrenceDate != "2025-12-01" {
		t.Errorf("bumped habit should keep its occurrence date, got %s", result.Habits[0].OccurrenceDate)
	}

	if result.Summary.BumpedEvents != 1 {
		t.Errorf("summary: %+v", result.Summary)
	}
	if len(result.DeleteIDs) != 0 {
		t.Errorf("bumping a same-run placement deletes nothing, got %v", result.DeleteIDs)
	}
	if result.Tasks[0].PastDeadline {
		t.Error("urgent task should have been placed before its deadline")
	}
}

func TestRun_FullRescheduleConverges(t *testing.T) {
	habit := newTestHabit("Stretching")
	habit.EndDate = timePointer(testNow.Add(24 * time.Hour))

	deadline := testNow.Add(9 * 24 * time.Hour)
	task := newTestTask("White paper", 120)
	task.IsSplittable = true
	task.EndDate = &deadline

	input := &Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 3,
		Habits:     []Habit{habit},
		Tasks:      []Task{task},
	}

	first, err := Run(input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Events) == 0 {
		t.Fatal("expected events in the first run")
	}

	// Simulate the live adapter persisting the outcome
	var stored []calendar.Event
	taskMinutes := 0
	for _, planned := range first.Events {
		event := calendar.Event{
			ID:          primitive.NewObjectID(),
			WorkspaceID: habit.WorkspaceID,
			Title:       planned.Title,
			Date:        date.Timespan{Start: planned.StartAt, End: planned.EndAt},
		}

		switch planned.Kind {
		case EventKindHabit:
			event.Link = &calendar.Link{
				Kind:           calendar.LinkKindHabit,
				OwnerID:        planned.OwnerID,
				OccurrenceDate: planned.OccurrenceDate,
			}
		case EventKindTask:
			event.Link = &calendar.Link{
				Kind:             calendar.LinkKindTask,
				OwnerID:          planned.OwnerID,
				ScheduledMinutes: planned.ScheduledMinutes,
			}
			taskMinutes += planned.ScheduledMinutes
		}

		stored = append(stored, event)
	}

	rerunTask := task
	rerunTask.ScheduledMinutes = taskMinutes

	second, err := Run(&Input{
		Now:            testNow,
		Timezone:       "UTC",
		WindowDays:     3,
		FullReschedule: true,
		Habits:         []Habit{habit},
		Tasks:          []Task{rerunTask},
		Events:         stored,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(second.DeleteIDs) != len(stored) {
		t.Errorf("expected %d deletions, got %d", len(stored), len(second.DeleteIDs))
	}
	if !reflect.DeepEqual(first.Events, second.Events) {
		t.Errorf("a full reschedule should converge to the same plan\nfirst:  %v\nsecond: %v", first.Events, second.Events)
	}

	// Without a full reschedule the surviving events satisfy everything
	third, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 3,
		Habits:     []Habit{habit},
		Tasks:      []Task{rerunTask},
		Events:     stored,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(third.Events) != 0 || len(third.DeleteIDs) != 0 {
		t.Errorf("a plain re-run should not change anything, got %d events and %d deletions",
			len(third.Events), len(third.DeleteIDs))
	}
}

func TestRun_SplittableTaskChunks(t *testing.T) {
	task := newTestTask("Research sprint", 180)
	task.IsSplittable = true
	task.MinSplitDurationMinutes = 30
	task.MaxSplitDurationMinutes = 60

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 2,
		Tasks:      []Task{task},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(result.Events))
	}

	total := 0
	for _, event := range result.Events {
		if event.EndAt.Sub(event.StartAt) != time.Hour {
			t.Errorf("chunk should be an hour, got %v", event.EndAt.Sub(event.StartAt))
		}
		total += event.ScheduledMinutes
	}
	if total != 180 {
		t.Errorf("chunks should cover all minutes, got %d", total)
	}

	wantTitles := []string{"Research sprint (1/3)", "Research sprint (2/3)", "Research sprint (3/3)"}
	for i, placement := range result.Tasks[0].Events {
		if placement.Title != wantTitles[i] {
			t.Errorf("got title %q, want %q", placement.Title, wantTitles[i])
		}
	}

	if result.Tasks[0].RemainingMinutes != 0 || result.Summary.TasksScheduled != 1 {
		t.Errorf("task should be fully scheduled: %+v", result.Tasks[0])
	}
}

func TestRun_NonSplittableTaskNeedsOneSlot(t *testing.T) {
	hours := &HourSettings{}
	for day := range hours.Work {
		hours.Work[day] = DayHours{
			Enabled:    true,
			TimeBlocks: []TimeBlock{{StartTime: "09:00", EndTime: "10:00"}},
		}
	}

	task := newTestTask("Workshop", 120)

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 3,
		Hours:      hours,
		Tasks:      []Task{task},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 0 {
		t.Fatalf("a 2h block should not fit into 1h windows, got %v", result.Events)
	}
	if result.Summary.TasksUnscheduled != 1 {
		t.Errorf("summary: %+v", result.Summary)
	}
	if !hasLogContaining(result.Logs, LogWarning, "Could not place") {
		t.Errorf("expected a warning, got %v", result.Logs)
	}
}

func TestRun_HabitDurationNegotiation(t *testing.T) {
	hours := &HourSettings{}
	hours.Personal[time.Monday] = DayHours{
		Enabled:    true,
		TimeBlocks: []TimeBlock{{StartTime: "09:00", EndTime: "09:45"}},
	}

	habit := newTestHabit("Meditation")
	habit.Frequency = FrequencyWeekly
	habit.EndDate = timePointer(testNow)
	habit.MinDurationMinutes = 30

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 2,
		Hours:      hours,
		Habits:     []Habit{habit},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("expected a shrunk placement, got %d: %v", len(result.Events), result.Logs)
	}
	if got := result.Events[0].EndAt.Sub(result.Events[0].StartAt); got != 45*time.Minute {
		t.Errorf("expected 45 minutes, got %v", got)
	}
}

func TestRun_DroppedHabitIsNotAnError(t *testing.T) {
	hours := &HourSettings{}

	habit := newTestHabit("Impossible habit")
	habit.EndDate = timePointer(testNow)

	result, err := Run(&Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 2,
		Hours:      hours,
		Habits:     []Habit{habit},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 0 {
		t.Fatalf("expected no events, got %v", result.Events)
	}
	if !hasLogContaining(result.Logs, LogInfo, "No slot") {
		t.Errorf("expected an info log, got %v", result.Logs)
	}
	if result.Summary.HabitsDropped == 0 {
		t.Errorf("summary: %+v", result.Summary)
	}
}

func TestRun_BreakInsertion(t *testing.T) {
	habit := newTestHabit("Deep work")
	habit.DurationMinutes = 120
	habit.IdealTime = "09:00"
	habit.EndDate = timePointer(testNow)

	result, err := Run(&Input{
		Now:      testNow,
		Timezone: "UTC",
		Breaks:   BreakSettings{Enabled: true, IntervalMinutes: 90, DurationMinutes: 15},
		Habits:   []Habit{habit},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var breakEvent *PlannedEvent
	for i := range result.Events {
		if result.Events[i].Kind == EventKindBreak {
			breakEvent = &result.Events[i]
		}
	}
	if breakEvent == nil {
		t.Fatalf("expected a break event, got %v", result.Events)
	}

	wantStart := time.Date(2025, 12, 1, 11, 0, 0, 0, time.UTC)
	if !breakEvent.StartAt.Equal(wantStart) {
		t.Errorf("got break start %v, want %v", breakEvent.StartAt, wantStart)
	}
	if breakEvent.EndAt.Sub(breakEvent.StartAt) != 15*time.Minute {
		t.Errorf("got break duration %v", breakEvent.EndAt.Sub(breakEvent.StartAt))
	}
	if result.Summary.BreaksScheduled != 1 {
		t.Errorf("summary: %+v", result.Summary)
	}
}

func TestRun_InvalidInputs(t *testing.T) {
	if _, err := Run(&Input{Now: testNow, Timezone: "Not/AZone"}, nil); !errors.Is(err, date.ErrInvalidTimezone) {
		t.Errorf("expected ErrInvalidTimezone, got %v", err)
	}

	badHabit := newTestHabit("Broken")
	badHabit.DurationMinutes = 0
	if _, err := Run(&Input{Now: testNow, Timezone: "UTC", Habits: []Habit{badHabit}}, nil); err == nil {
		t.Error("expected an error for a non-positive duration")
	}

	badHours := &HourSettings{}
	badHours.Work[time.Monday] = DayHours{
		Enabled:    true,
		TimeBlocks: []TimeBlock{{StartTime: "17:00", EndTime: "09:00"}},
	}
	if _, err := Run(&Input{Now: testNow, Timezone: "UTC", Hours: badHours}, nil); err == nil {
		t.Error("expected an error for reversed availability blocks")
	}

	start := testNow.Add(48 * time.Hour)
	end := testNow.Add(24 * time.Hour)
	badTask := newTestTask("Inverted", 60)
	badTask.StartDate = &start
	badTask.EndDate = &end
	if _, err := Run(&Input{Now: testNow, Timezone: "UTC", Tasks: []Task{badTask}}, nil); err == nil {
		t.Error("expected an error for a deadline before the start date")
	}
}

func TestRun_AllDayEventsDoNotBlock(t *testing.T) {
	habit := newTestHabit("Morning walk")
	habit.IdealTime = "08:00"
	habit.EndDate = timePointer(testNow)

	allDay := calendar.Event{
		ID:          primitive.NewObjectID(),
		WorkspaceID: habit.WorkspaceID,
		Title:       "Conference",
		Timezone:    "UTC",
		Locked:      true,
		Date: date.Timespan{
			Start: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	result, err := Run(&Input{
		Now:      testNow,
		Timezone: "UTC",
		Habits:   []Habit{habit},
		Events:   []calendar.Event{allDay},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Events) != 1 {
		t.Fatalf("the all-day event should not block, got %d events: %v", len(result.Events), result.Logs)
	}

	wantStart := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	if !result.Events[0].StartAt.Equal(wantStart) {
		t.Errorf("got start %v, want %v", result.Events[0].StartAt, wantStart)
	}
}
