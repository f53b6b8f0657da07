package scheduling

import (
	"fmt"
	"sort"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"github.com/dayplan-app/dayplan-backend/pkg/scheduling/calendar"
	"github.com/pkg/errors"
)

const (
	defaultWindowDays = 28

	// Tasks whose deadline is closer than this may evict lower priority events
	urgencyThreshold = 48 * time.Hour

	// Occurrences whose nearest slot is further than this factor times their
	// duration away from their ideal time are dropped instead
	maxIdealDeviationFactor = 4

	// A bumped habit occurrence may move up to this many days past its date
	bumpedHabitSearchDays = 7
)

// BreakSettings configures the optional break insertion pass
type BreakSettings struct {
	Enabled         bool `json:"enabled" bson:"enabled"`
	IntervalMinutes int  `json:"intervalMinutes" bson:"intervalMinutes"`
	DurationMinutes int  `json:"durationMinutes" bson:"durationMinutes"`
}

const (
	defaultBreakIntervalMinutes = 90
	defaultBreakDurationMinutes = 15

	// A gap of at least this long between events resets the accumulated focus time
	breakGapReset = 30 * time.Minute
)

// Input is the immutable snapshot of a workspace a run operates on. The engine
// never mutates it and performs no I/O, all effects are described by the Result.
type Input struct {
	// Now is the injectable run instant, zero means the wall clock
	Now      time.Time
	Timezone string

	// WindowDays bounds the search window, zero means the default
	WindowDays int

	// FullReschedule deletes all future non-locked generated events up front so
	// repeated runs converge instead of accumulating duplicates
	FullReschedule bool

	// Hours is the per-category weekly availability, nil means the default hours
	Hours  *HourSettings
	Breaks BreakSettings

	Habits []Habit
	Tasks  []Task

	// Events are the existing calendar events overlapping the window, with
	// generation links populated. All-day events are skipped for blocking.
	Events []calendar.Event
}

type engine struct {
	in       *Input
	hours    *HourSettings
	location *time.Location
	now      time.Time
	window   date.Timespan
	tracker  *occupiedTracker
	recorder StepRecorder
	result   *Result

	stepNumber    int
	bumpedEvents  int
	droppedHabits int
	breakCount    int

	habitsByID map[string]*Habit
	tasksByID  map[string]*Task

	// scheduledOccurrences dedups habit occurrences by habit id and local date
	scheduledOccurrences map[string]bool

	// reclaimedMinutes are task minutes freed by deleting prior generated events
	reclaimedMinutes map[string]int

	taskRuns     []*taskRun
	taskRunsByID map[string]*taskRun
	taskQueue    []*taskRun
}

type taskRun struct {
	task         Task
	remaining    int
	placed       int
	parts        int
	eventIDs     []string
	pastDeadline bool
	allowBump    bool
	processed    bool
}

// Run executes a complete scheduling pass over the input snapshot. The returned
// Result lists the events to create, the event IDs to delete and the log entries
// of the run. A nil recorder disables step recording.
func Run(input *Input, recorder StepRecorder) (*Result, error) {
	if recorder == nil {
		recorder = nopStepRecorder{}
	}

	location, err := date.LoadTimezone(input.Timezone)
	if err != nil {
		return nil, err
	}

	hours := input.Hours
	if hours == nil {
		hours = DefaultHourSettings()
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	windowDays := input.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	e := &engine{
		in:                   input,
		hours:                hours,
		location:             location,
		now:                  now,
		window:               date.Timespan{Start: now, End: date.AddZonedDays(now, location, windowDays)},
		tracker:              newOccupiedTracker(),
		recorder:             recorder,
		result:               &Result{},
		habitsByID:           make(map[string]*Habit),
		tasksByID:            make(map[string]*Task),
		scheduledOccurrences: make(map[string]bool),
		reclaimedMinutes:     make(map[string]int),
		taskRunsByID:         make(map[string]*taskRun),
	}

	for i := range input.Habits {
		e.habitsByID[input.Habits[i].ID.Hex()] = &input.Habits[i]
	}
	for i := range input.Tasks {
		e.tasksByID[input.Tasks[i].ID.Hex()] = &input.Tasks[i]
	}

	e.collectExistingEvents()
	e.scheduleHabits()
	e.scheduleTasks()
	e.scheduleBreaks()
	e.finish()

	return e.result, nil
}

func validateInput(input *Input) error {
	for i := range input.Habits {
		habit := &input.Habits[i]

		if habit.DurationMinutes <= 0 {
			return errors.Errorf("habit %q has a non-positive duration", habit.Name)
		}
		if habit.IdealTime != "" {
			if _, _, err := date.ParseClock(habit.IdealTime); err != nil {
				return errors.Wrapf(err, "habit %q has an invalid ideal time", habit.Name)
			}
		}
		switch habit.Frequency {
		case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly, FrequencyCustom:
		default:
			return errors.Errorf("habit %q has an unknown frequency %q", habit.Name, habit.Frequency)
		}
	}

	for i := range input.Tasks {
		task := &input.Tasks[i]

		if task.TotalDurationMinutes <= 0 {
			return errors.Errorf("task %q has a non-positive duration", task.Name)
		}
		if task.StartDate != nil && task.EndDate != nil && task.EndDate.Before(*task.StartDate) {
			return errors.Errorf("task %q has its deadline before its start date", task.Name)
		}
	}

	return nil
}

// collectExistingEvents classifies the existing events into deletions, blocking
// occupants and the movable pool, and reclaims task minutes of deleted events
func (e *engine) collectExistingEvents() {
	for i := range e.in.Events {
		event := &e.in.Events[i]

		if event.IsAllDay() {
			continue
		}

		future := event.Date.Start.After(e.now)
		ongoing := event.Date.ContainsInstant(e.now)
		ended := !event.Date.End.After(e.now)
		generated := event.IsGenerated()

		if e.in.FullReschedule && generated && !event.Locked && future {
			e.result.DeleteIDs = append(e.result.DeleteIDs, event.ID.Hex())

			if event.Link.Kind == calendar.LinkKindTask {
				e.reclaimedMinutes[event.Link.OwnerID] += event.Link.ScheduledMinutes
			}
			continue
		}

		// Surviving generated habit events keep their occurrence deduplicated
		if generated && event.Link.Kind == calendar.LinkKindHabit && event.Link.OccurrenceDate != "" {
			e.scheduledOccurrences[occurrenceKey(event.Link.OwnerID, event.Link.OccurrenceDate)] = true
		}

		if ended || !event.Date.IntersectsWith(e.window) {
			continue
		}

		o := occupant{
			eventID:  event.ID.Hex(),
			span:     event.Date,
			kind:     occupantLocked,
			priorRun: true,
		}

		// Future non-locked generated events are movable, everything else blocks
		if generated && !event.Locked && !ongoing {
			link := event.Link
			switch link.Kind {
			case calendar.LinkKindHabit:
				o.kind = occupantHabit
				o.ownerID = link.OwnerID
				o.occurrenceDate = link.OccurrenceDate
				o.priority = PriorityNormal
				o.flexible = true
				if habit := e.habitsByID[link.OwnerID]; habit != nil {
					o.priority = habit.EffectivePriority()
					o.flexible = !habit.HasFixedTime() && !habit.HasTimePreference()
				}
			case calendar.LinkKindTask:
				o.kind = occupantTask
				o.ownerID = link.OwnerID
				o.priority = PriorityLow
				if task := e.tasksByID[link.OwnerID]; task != nil {
					o.priority = EffectivePriority(task.Priority, task.EndDate, e.now)
					o.deadline = task.EndDate
				}
			}
		}

		e.tracker.add(o)
	}
}

func occurrenceKey(habitID string, localDate string) string {
	return habitID + "|" + localDate
}

type habitOccurrence struct {
	habit *Habit
	day   time.Time
	index int
}

// scheduleHabits expands and places all habit occurrences inside the window.
// Occurrences with a fixed time wish go first so flexible ones pack around them.
func (e *engine) scheduleHabits() {
	var pending []habitOccurrence

	for i := range e.in.Habits {
		habit := &e.in.Habits[i]
		if !habit.IsActive || !habit.AutoSchedule {
			continue
		}

		for _, day := range OccurrencesInRange(habit, e.window.Start, e.window.End, e.location) {
			key := occurrenceKey(habit.ID.Hex(), date.LocalDateString(day, e.location))
			if e.scheduledOccurrences[key] {
				continue
			}
			pending = append(pending, habitOccurrence{habit: habit, day: day, index: i})
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		a := pending[i]
		b := pending[j]

		if a.habit.HasFixedTime() != b.habit.HasFixedTime() {
			return a.habit.HasFixedTime()
		}
		if a.habit.HasTimePreference() != b.habit.HasTimePreference() {
			return a.habit.HasTimePreference()
		}
		if comparison := ComparePriority(a.habit.EffectivePriority(), b.habit.EffectivePriority()); comparison != 0 {
			return comparison < 0
		}
		if !a.day.Equal(b.day) {
			return a.day.Before(b.day)
		}
		return a.index < b.index
	})

	for _, occurrence := range pending {
		e.placeHabitOccurrence(occurrence.habit, occurrence.day, false)
	}
}

// placeHabitOccurrence searches the occurrence day for a slot honoring the habit's
// ideal time and duration bounds. Bumped occurrences may move to the following days.
func (e *engine) placeHabitOccurrence(habit *Habit, day time.Time, bumped bool) bool {
	searchDays := 1
	if bumped {
		searchDays = bumpedHabitSearchDays + 1
	}

	bounds := habit.DurationBounds()
	week := e.hours.ForCategory(habit.Category())
	occurrenceDate := date.LocalDateString(day, e.location)

	for offset := 0; offset < searchDays; offset++ {
		searchDay := day
		if offset > 0 {
			searchDay = date.AddZonedDays(day, e.location, offset)
		}
		if !searchDay.Before(e.window.End) {
			break
		}

		free := e.freeForDay(searchDay, week, e.now)
		if len(free) == 0 {
			continue
		}

		ideal := e.idealInstant(habit, searchDay)

		slot := FindSlot(free, bounds.Preferred, bounds, ideal)
		if slot == nil {
			continue
		}

		if !bumped && ideal != nil {
			deviation := slot.Start.Sub(*ideal)
			if deviation < 0 {
				deviation = -deviation
			}
			if deviation > time.Duration(maxIdealDeviationFactor)*bounds.Preferred {
				e.droppedHabits++
				e.result.info("Dropped %q on %s, the nearest slot is too far from its ideal time", habit.Name, occurrenceDate)
				return false
			}
		}

		if e.tracker.hasConflict(*slot) {
			continue
		}

		eventID := fmt.Sprintf("habit-%s-%s", habit.ID.Hex(), occurrenceDate)
		event := PlannedEvent{
			ID:             eventID,
			Title:          habit.Name,
			StartAt:        slot.Start,
			EndAt:          slot.End,
			Kind:           EventKindHabit,
			OwnerID:        habit.ID.Hex(),
			OccurrenceDate: occurrenceDate,
			Category:       habit.Category(),
			Color:          ColorForCategory(habit.Category()),
		}

		e.result.Events = append(e.result.Events, event)
		e.result.Habits = append(e.result.Habits, HabitPlacement{
			HabitID:        habit.ID.Hex(),
			HabitName:      habit.Name,
			OccurrenceDate: occurrenceDate,
			Event:          event,
			WasBumped:      bumped,
		})
		e.scheduledOccurrences[occurrenceKey(habit.ID.Hex(), occurrenceDate)] = true

		e.tracker.add(occupant{
			eventID:        eventID,
			span:           *slot,
			kind:           occupantHabit,
			priority:       habit.EffectivePriority(),
			ownerID:        habit.ID.Hex(),
			occurrenceDate: occurrenceDate,
			flexible:       !habit.HasFixedTime() && !habit.HasTimePreference(),
		})

		stepType := StepHabit
		description := fmt.Sprintf("Scheduled %q on %s", habit.Name, occurrenceDate)
		if bumped {
			stepType = StepReschedule
			description = fmt.Sprintf("Rescheduled bumped %q from %s", habit.Name, occurrenceDate)
		}
		e.recordStep(stepType, description, &event, habit.ID.Hex(), habit.Name, len(free))

		return true
	}

	if bumped {
		e.result.info("Could not reschedule bumped %q from %s within the following days", habit.Name, occurrenceDate)
	} else {
		e.droppedHabits++
		e.result.info("No slot for %q on %s inside its availability hours", habit.Name, occurrenceDate)
	}

	return false
}

// idealInstant resolves the wished time of a habit on a given day, either its
// explicit ideal time or the midpoint of its daypart preference
func (e *engine) idealInstant(habit *Habit, day time.Time) *time.Time {
	local := day.In(e.location)

	if habit.IdealTime != "" {
		if hour, minute, err := date.ParseClock(habit.IdealTime); err == nil {
			instant := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, e.location).UTC()
			return &instant
		}
	}

	if startHour, endHour, ok := habit.TimePreference.ClockRange(); ok {
		midpoint := (startHour*60 + endHour*60) / 2
		instant := time.Date(local.Year(), local.Month(), local.Day(), midpoint/60, midpoint%60, 0, 0, e.location).UTC()
		return &instant
	}

	return nil
}

// freeForDay computes the free intervals of a day's availability windows after
// subtracting everything currently occupied, clipped to the run window
func (e *engine) freeForDay(day time.Time, week WeekHours, notBefore time.Time) []date.Timespan {
	var free []date.Timespan

	for _, window := range windowsForDay(day, week, e.location) {
		if window.Start.Before(notBefore) {
			window.Start = notBefore
		}
		if window.End.After(e.window.End) {
			window.End = e.window.End
		}
		if !window.IsStartBeforeEnd() {
			continue
		}

		free = append(free, date.SubtractBusy(window, e.tracker.busyWithin(window))...)
	}

	return free
}

// scheduleTasks places all schedulable tasks, hardest first. Bumped tasks re-enter
// the queue once with bumping disabled so eviction stays single-depth.
func (e *engine) scheduleTasks() {
	var schedulable []Task
	for _, task := range e.in.Tasks {
		if !task.AutoSchedule || task.IsDone {
			continue
		}

		if reclaimed := e.reclaimedMinutes[task.ID.Hex()]; reclaimed > 0 {
			task.ScheduledMinutes -= reclaimed
			if task.ScheduledMinutes < 0 {
				task.ScheduledMinutes = 0
			}
		}

		schedulable = append(schedulable, task)
	}

	for _, task := range sortTasksForScheduling(schedulable, e.now) {
		run := &taskRun{task: task, remaining: task.RemainingMinutes(), allowBump: true}
		e.taskRuns = append(e.taskRuns, run)
		e.taskRunsByID[task.ID.Hex()] = run
		e.taskQueue = append(e.taskQueue, run)
	}

	for i := 0; i < len(e.taskQueue); i++ {
		e.processTask(e.taskQueue[i])
	}
}

func (e *engine) processTask(run *taskRun) {
	defer func() { run.processed = true }()

	if run.remaining <= 0 {
		return
	}

	task := &run.task
	priority := EffectivePriority(task.Priority, task.EndDate, e.now)

	e.sweepTask(run, true)

	var habitVictims []occupant
	if run.remaining > 0 && run.allowBump && task.EndDate != nil && task.EndDate.Sub(e.now) <= urgencyThreshold {
		habitVictims = e.bumpForTask(run, priority)
		if run.remaining > 0 {
			e.sweepTask(run, true)
		}
	}

	if run.remaining > 0 && task.EndDate != nil {
		before := run.remaining
		e.sweepTask(run, false)
		if run.remaining < before {
			run.pastDeadline = true
			e.result.warning("Scheduled %q past its deadline", task.Name)
		}
	}

	if run.remaining > 0 {
		e.result.warning("Could not place %d minutes of %q inside the search window", run.remaining, task.Name)
	}

	// Evicted habit occurrences come back only after the urgent task had its pick
	for _, victim := range habitVictims {
		e.rescheduleBumpedHabit(victim)
	}
}

// sweepTask walks the window day by day placing chunks of the task. With
// honorDeadline only slots ending before the deadline are considered.
func (e *engine) sweepTask(run *taskRun, honorDeadline bool) {
	task := &run.task

	var deadline *time.Time
	if honorDeadline {
		deadline = task.EndDate
	}

	searchStart := e.now
	if task.StartDate != nil && task.StartDate.After(searchStart) {
		searchStart = *task.StartDate
	}
	if deadline != nil && !deadline.After(searchStart) {
		return
	}

	week := e.hours.ForCategory(task.Category())
	minSplit, maxSplit := task.SplitBounds()

	for day := date.StartOfZonedDay(searchStart, e.location); day.Before(e.window.End) && run.remaining > 0; day = date.AddZonedDays(day, e.location, 1) {
		if deadline != nil && !day.Before(*deadline) {
			break
		}

		usable := e.freeForDay(day, week, searchStart)
		if deadline != nil {
			usable = clipToDeadline(usable, *deadline)
		}
		if len(usable) == 0 {
			continue
		}

		if !task.IsSplittable {
			needed := time.Duration(run.remaining) * time.Minute
			slot := FindSlot(usable, needed, DurationBounds{Preferred: needed, Min: needed, Max: needed}, nil)
			if slot != nil && !e.tracker.hasConflict(*slot) {
				e.placeTaskChunk(run, *slot)
			}
			continue
		}

		for run.remaining > 0 {
			chunkMinutes := run.remaining
			if maxChunk := int(maxSplit / time.Minute); chunkMinutes > maxChunk {
				chunkMinutes = maxChunk
			}

			// Never leave a leftover smaller than the minimum chunk
			minChunk := int(minSplit / time.Minute)
			if leftover := run.remaining - chunkMinutes; leftover > 0 && leftover < minChunk {
				chunkMinutes = run.remaining - minChunk
			}
			if chunkMinutes <= 0 {
				break
			}

			needed := time.Duration(chunkMinutes) * time.Minute
			minimum := minSplit
			if needed < minimum {
				minimum = needed
			}

			slot := FindSlot(usable, needed, DurationBounds{Preferred: needed, Min: minimum, Max: maxSplit}, nil)
			if slot == nil || e.tracker.hasConflict(*slot) {
				break
			}

			e.placeTaskChunk(run, *slot)
			usable = subtractSpan(usable, *slot)
		}
	}
}

func clipToDeadline(intervals []date.Timespan, deadline time.Time) []date.Timespan {
	var clipped []date.Timespan
	for _, interval := range intervals {
		if !interval.Start.Before(deadline) {
			continue
		}
		if interval.End.After(deadline) {
			interval.End = deadline
		}
		if interval.IsStartBeforeEnd() {
			clipped = append(clipped, interval)
		}
	}
	return clipped
}

func subtractSpan(intervals []date.Timespan, span date.Timespan) []date.Timespan {
	var remaining []date.Timespan
	for _, interval := range intervals {
		if !interval.IntersectsWith(span) {
			remaining = append(remaining, interval)
			continue
		}
		if interval.Start.Before(span.Start) {
			remaining = append(remaining, date.Timespan{Start: interval.Start, End: span.Start})
		}
		if span.End.Before(interval.End) {
			remaining = append(remaining, date.Timespan{Start: span.End, End: interval.End})
		}
	}
	return remaining
}

func (e *engine) placeTaskChunk(run *taskRun, slot date.Timespan) {
	task := &run.task
	minutes := int(slot.Duration() / time.Minute)

	run.parts++
	eventID := fmt.Sprintf("task-%s-%d", task.ID.Hex(), run.parts)

	event := PlannedEvent{
		ID:               eventID,
		Title:            task.Name,
		StartAt:          slot.Start,
		EndAt:            slot.End,
		Kind:             EventKindTask,
		OwnerID:          task.ID.Hex(),
		ScheduledMinutes: minutes,
		Category:         task.Category(),
		Color:            ColorForCategory(task.Category()),
	}

	e.result.Events = append(e.result.Events, event)
	e.tracker.add(occupant{
		eventID:  eventID,
		span:     slot,
		kind:     occupantTask,
		priority: EffectivePriority(task.Priority, task.EndDate, e.now),
		deadline: task.EndDate,
		ownerID:  task.ID.Hex(),
	})

	run.eventIDs = append(run.eventIDs, eventID)
	run.placed += minutes
	run.remaining -= minutes

	e.recordStep(StepTask, fmt.Sprintf("Scheduled %d minutes of %q", minutes, task.Name), &event, task.ID.Hex(), task.Name, 0)
}

// bumpForTask evicts lower priority occupants inside the urgent task's deadline
// window until enough minutes are freed. Habit victims are returned so the caller
// can reschedule them after the urgent task has been placed.
func (e *engine) bumpForTask(run *taskRun, priority Priority) []occupant {
	deadline := *run.task.EndDate

	var habitVictims []occupant
	freed := 0

	for _, victim := range e.tracker.bumpCandidates(priority, deadline, e.now) {
		if freed >= run.remaining {
			break
		}

		e.evict(victim, run.task.Name)
		freed += int(victim.span.Duration() / time.Minute)

		if victim.kind == occupantHabit {
			habitVictims = append(habitVictims, victim)
		}
	}

	return habitVictims
}

// evict removes an occupant from the calendar, deleting prior-run events and
// unplacing this-run ones, and re-queues evicted tasks
func (e *engine) evict(victim occupant, reason string) {
	e.tracker.remove(victim.eventID)
	e.bumpedEvents++

	if victim.priorRun {
		e.result.DeleteIDs = append(e.result.DeleteIDs, victim.eventID)
	} else {
		e.removePlannedEvent(victim.eventID)
	}

	e.recordStep(StepBump, fmt.Sprintf("Bumped an event to make room for urgent %q", reason), nil, victim.eventID, "", 0)

	switch victim.kind {
	case occupantHabit:
		if victim.occurrenceDate != "" {
			delete(e.scheduledOccurrences, occurrenceKey(victim.ownerID, victim.occurrenceDate))
		}
		if !victim.priorRun {
			e.removeHabitPlacement(victim.eventID)
		}

	case occupantTask:
		minutes := int(victim.span.Duration() / time.Minute)

		victimRun := e.taskRunsByID[victim.ownerID]
		if victimRun == nil {
			// Prior-run event of a task outside this run's inputs, only deleted
			return
		}

		if !victim.priorRun {
			victimRun.placed -= minutes
			for i, id := range victimRun.eventIDs {
				if id == victim.eventID {
					victimRun.eventIDs = append(victimRun.eventIDs[:i], victimRun.eventIDs[i+1:]...)
					break
				}
			}
		}

		victimRun.remaining += minutes
		victimRun.allowBump = false

		if victimRun.processed {
			victimRun.processed = false
			e.taskQueue = append(e.taskQueue, victimRun)
		}
	}
}

func (e *engine) rescheduleBumpedHabit(victim occupant) {
	habit := e.habitsByID[victim.ownerID]
	if habit == nil {
		e.result.info("Removed an event of an unknown habit, nothing to reschedule")
		return
	}

	day, err := time.ParseInLocation("2006-01-02", victim.occurrenceDate, e.location)
	if err != nil {
		e.result.info("Could not reschedule bumped %q, unreadable occurrence date", habit.Name)
		return
	}

	e.placeHabitOccurrence(habit, day.UTC(), true)
}

// scheduleBreaks inserts short breaks after stretches of accumulated focus time.
// Gaps between events longer than the reset threshold clear the accumulation.
func (e *engine) scheduleBreaks() {
	if !e.in.Breaks.Enabled {
		return
	}

	intervalMinutes := e.in.Breaks.IntervalMinutes
	if intervalMinutes <= 0 {
		intervalMinutes = defaultBreakIntervalMinutes
	}
	breakDuration := time.Duration(e.in.Breaks.DurationMinutes) * time.Minute
	if breakDuration <= 0 {
		breakDuration = defaultBreakDurationMinutes * time.Minute
	}

	var spans []date.Timespan
	for _, o := range e.tracker.occupants {
		if o.kind == occupantBreak || !o.span.End.After(e.now) {
			continue
		}
		spans = append(spans, o.span)
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].Start.Before(spans[j].Start)
	})

	accumulated := 0
	var previousEnd time.Time

	for _, span := range spans {
		if !previousEnd.IsZero() && span.Start.Sub(previousEnd) >= breakGapReset {
			accumulated = 0
		}

		accumulated += int(span.Duration() / time.Minute)
		if span.End.After(previousEnd) {
			previousEnd = span.End
		}

		if accumulated < intervalMinutes {
			continue
		}

		slot := date.Timespan{Start: previousEnd, End: previousEnd.Add(breakDuration)}
		if slot.End.After(e.window.End) || e.tracker.hasConflict(slot) {
			continue
		}

		e.breakCount++
		eventID := fmt.Sprintf("break-%d", e.breakCount)
		event := PlannedEvent{
			ID:      eventID,
			Title:   "Break",
			StartAt: slot.Start,
			EndAt:   slot.End,
			Kind:    EventKindBreak,
			Color:   ColorGray,
		}

		e.result.Events = append(e.result.Events, event)
		e.tracker.add(occupant{eventID: eventID, span: slot, kind: occupantBreak})
		e.recordStep(StepBreak, "Inserted a break after a long focus stretch", &event, "", "", 0)

		accumulated = 0
		previousEnd = slot.End
	}
}

// finish assembles the task placements, renames split parts and fills the summary
func (e *engine) finish() {
	sort.SliceStable(e.result.Events, func(i, j int) bool {
		return e.result.Events[i].StartAt.Before(e.result.Events[j].StartAt)
	})

	eventsByID := make(map[string]*PlannedEvent, len(e.result.Events))
	for i := range e.result.Events {
		eventsByID[e.result.Events[i].ID] = &e.result.Events[i]
	}

	for _, run := range e.taskRuns {
		placement := TaskPlacement{
			TaskID:           run.task.ID.Hex(),
			TaskName:         run.task.Name,
			ScheduledMinutes: run.placed,
			RemainingMinutes: run.remaining,
			PastDeadline:     run.pastDeadline,
		}

		var events []*PlannedEvent
		for _, id := range run.eventIDs {
			if event := eventsByID[id]; event != nil {
				events = append(events, event)
			}
		}
		sort.Slice(events, func(i, j int) bool {
			return events[i].StartAt.Before(events[j].StartAt)
		})

		for i, event := range events {
			event.Title = splitTitle(run.task.Name, i+1, len(events))
			placement.Events = append(placement.Events, *event)
		}

		e.result.Tasks = append(e.result.Tasks, placement)

		switch {
		case run.placed > 0 && run.remaining == 0:
			e.result.Summary.TasksScheduled++
		case run.placed > 0:
			e.result.Summary.TasksPartiallyScheduled++
		case run.remaining > 0:
			e.result.Summary.TasksUnscheduled++
		}
	}

	e.result.Summary.TotalEvents = len(e.result.Events)
	e.result.Summary.HabitsScheduled = len(e.result.Habits)
	e.result.Summary.HabitsDropped = e.droppedHabits
	e.result.Summary.BumpedEvents = e.bumpedEvents
	e.result.Summary.BreaksScheduled = e.breakCount
}

func (e *engine) removePlannedEvent(eventID string) {
	for i := range e.result.Events {
		if e.result.Events[i].ID == eventID {
			e.result.Events = append(e.result.Events[:i], e.result.Events[i+1:]...)
			return
		}
	}
}

func (e *engine) removeHabitPlacement(eventID string) {
	for i := range e.result.Habits {
		if e.result.Habits[i].Event.ID == eventID {
			e.result.Habits = append(e.result.Habits[:i], e.result.Habits[i+1:]...)
			return
		}
	}
}

func (e *engine) recordStep(stepType StepType, description string, event *PlannedEvent, relatedID string, relatedName string, freeSlots int) {
	e.stepNumber++

	var eventCopy *PlannedEvent
	if event != nil {
		copied := *event
		eventCopy = &copied
	}

	e.recorder.Record(Step{
		Number:       e.stepNumber,
		Type:         stepType,
		Description:  description,
		Event:        eventCopy,
		EventsPlaced: len(e.result.Events),
		FreeSlots:    freeSlots,
		RelatedID:    relatedID,
		RelatedName:  relatedName,
	})
}
