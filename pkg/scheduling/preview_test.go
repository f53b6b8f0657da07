package scheduling

import (
	"reflect"
	"testing"
	"time"
)

func bumpScenarioInput() *Input {
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

	return &Input{
		Now:        testNow,
		Timezone:   "UTC",
		WindowDays: 14,
		Hours:      hours,
		Habits:     []Habit{habit},
		Tasks:      []Task{task},
	}
}

func TestPreview_MatchesLiveRun(t *testing.T) {
	input := bumpScenarioInput()

	preview, err := Preview(input)
	if err != nil {
		t.Fatal(err)
	}

	live, err := Run(input, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(preview.Result, *live) {
		t.Errorf("preview and live run diverge\npreview: %+v\nlive:    %+v", preview.Result, *live)
	}
	if len(preview.Steps) == 0 {
		t.Fatal("expected recorded steps")
	}
}

func TestPreview_StepNumbersIncrease(t *testing.T) {
	preview, err := Preview(bumpScenarioInput())
	if err != nil {
		t.Fatal(err)
	}

	last := 0
	for _, step := range preview.Steps {
		if step.Number <= last {
			t.Errorf("step numbers should be strictly increasing, got %d after %d", step.Number, last)
		}
		last = step.Number
	}
}

func TestPreview_EventsAtStepReplaysBump(t *testing.T) {
	preview, err := Preview(bumpScenarioInput())
	if err != nil {
		t.Fatal(err)
	}

	steps := preview.AnimationSteps()
	if len(steps) != 4 {
		t.Fatalf("expected habit, bump, task and reschedule steps, got %d: %v", len(steps), steps)
	}

	wantTypes := []StepType{StepHabit, StepBump, StepTask, StepReschedule}
	for i, step := range steps {
		if step.Type != wantTypes[i] {
			t.Errorf("step %d: got type %s, want %s", i, step.Type, wantTypes[i])
		}
	}

	if got := preview.EventsAtStep(steps[0].Number); len(got) != 1 {
		t.Errorf("after the habit step 1 event should be visible, got %d", len(got))
	}
	if got := preview.EventsAtStep(steps[1].Number); len(got) != 0 {
		t.Errorf("the bump should hide the habit event, got %d visible", len(got))
	}
	if got := preview.EventsAtStep(steps[2].Number); len(got) != 1 {
		t.Errorf("after the task step 1 event should be visible, got %d", len(got))
	}

	final := preview.EventsAtStep(steps[len(steps)-1].Number)
	if len(final) != len(preview.Events) {
		t.Errorf("the full replay should show all %d final events, got %d", len(preview.Events), len(final))
	}
}
