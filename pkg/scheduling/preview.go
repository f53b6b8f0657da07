package scheduling

// StepType classifies a single placement decision of a run
type StepType string

// The step types a run can emit
const (
	StepHabit      StepType = "habit"
	StepTask       StepType = "task"
	StepBump       StepType = "bump"
	StepReschedule StepType = "reschedule"
	StepBreak      StepType = "break"
)

// Step is one placement decision of a run, carrying enough state for a
// step-by-step visual replay
type Step struct {
	Number       int           `json:"number"`
	Type         StepType      `json:"type"`
	Description  string        `json:"description"`
	Event        *PlannedEvent `json:"event,omitempty"`
	EventsPlaced int           `json:"eventsPlaced"`
	FreeSlots    int           `json:"freeSlots"`
	RelatedID    string        `json:"relatedId,omitempty"`
	RelatedName  string        `json:"relatedName,omitempty"`
}

// StepRecorder receives the placement decisions of a run in order
type StepRecorder interface {
	Record(step Step)
}

type nopStepRecorder struct{}

func (nopStepRecorder) Record(Step) {}

type collectingStepRecorder struct {
	steps []Step
}

func (r *collectingStepRecorder) Record(step Step) {
	r.steps = append(r.steps, step)
}

// PreviewResult is a run outcome together with its recorded animation steps
type PreviewResult struct {
	Result
	Steps []Step `json:"steps"`
}

// Preview simulates a run purely in memory. It performs no storage I/O and
// produces the same final event set a live run over the same input would.
func Preview(input *Input) (*PreviewResult, error) {
	recorder := &collectingStepRecorder{}

	result, err := Run(input, recorder)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{Result: *result, Steps: recorder.steps}, nil
}

// AnimationSteps returns the steps that place or remove an event, skipping
// purely informational ones
func (p *PreviewResult) AnimationSteps() []Step {
	var steps []Step
	for _, step := range p.Steps {
		if step.Event != nil || step.Type == StepBump {
			steps = append(steps, step)
		}
	}
	return steps
}

// EventsAtStep replays the steps up to and including the given step number and
// returns the events visible at that point
func (p *PreviewResult) EventsAtStep(number int) []PlannedEvent {
	visible := make(map[string]PlannedEvent)
	ordered := make(map[string]bool)
	var order []string

	for _, step := range p.Steps {
		if step.Number > number {
			break
		}

		switch step.Type {
		case StepBump:
			if step.RelatedID != "" {
				delete(visible, step.RelatedID)
			}
		default:
			if step.Event != nil {
				if !ordered[step.Event.ID] {
					ordered[step.Event.ID] = true
					order = append(order, step.Event.ID)
				}
				visible[step.Event.ID] = *step.Event
			}
		}
	}

	var events []PlannedEvent
	for _, id := range order {
		if event, ok := visible[id]; ok {
			events = append(events, event)
		}
	}

	return events
}
