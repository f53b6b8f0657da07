package scheduling

import (
	"context"
	"time"

	"github.com/dayplan-app/dayplan-backend/pkg/date"
	"github.com/dayplan-app/dayplan-backend/pkg/locking"
	"github.com/dayplan-app/dayplan-backend/pkg/logger"
	"github.com/dayplan-app/dayplan-backend/pkg/scheduling/calendar"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// ErrRunInProgress is returned when a workspace already has a run in flight
var ErrRunInProgress = errors.New("a scheduling run is already in progress for this workspace")

const scheduleLockTTL = 5 * time.Minute

// RunOptions are the per-invocation knobs of a workspace run
type RunOptions struct {
	// Now overrides the run instant, zero means the wall clock
	Now time.Time

	// WindowDays overrides the workspace's search window
	WindowDays int

	// FullReschedule deletes and rebuilds all future generated events
	FullReschedule bool
}

// PlanningService is the live adapter around the scheduling engine. It feeds the
// pure engine from storage and applies the resulting mutations, serializing runs
// per workspace through a lock.
type PlanningService struct {
	workspaceRepository WorkspaceRepositoryInterface
	calendarRepository  calendar.RepositoryInterface
	settingsCache       SettingsCacheInterface
	locker              locking.LockerInterface
	logger              logger.Interface
}

// NewPlanningService constructs a PlanningService
func NewPlanningService(
	workspaceRepository WorkspaceRepositoryInterface,
	calendarRepository calendar.RepositoryInterface,
	settingsCache SettingsCacheInterface,
	locker locking.LockerInterface,
	log logger.Interface) *PlanningService {
	return &PlanningService{
		workspaceRepository: workspaceRepository,
		calendarRepository:  calendarRepository,
		settingsCache:       settingsCache,
		locker:              locker,
		logger:              log,
	}
}

// ScheduleWorkspace runs the engine for a workspace and applies its output to
// storage. Individual event mutations that fail are logged and skipped, the run
// itself still succeeds.
func (s *PlanningService) ScheduleWorkspace(ctx context.Context, workspaceID primitive.ObjectID, options RunOptions) (*Result, error) {
	lock, err := s.locker.Acquire(ctx, "schedule-"+workspaceID.Hex(), scheduleLockTTL, true)
	if err != nil {
		if errors.Is(err, locking.ErrLockHeld) {
			return nil, ErrRunInProgress
		}
		return nil, err
	}
	defer func() {
		releaseErr := lock.Release(ctx)
		if releaseErr != nil {
			s.logger.Warning("Could not release scheduling lock", releaseErr)
		}
	}()

	input, linkedMinutes, err := s.buildInput(ctx, workspaceID, options)
	if err != nil {
		return nil, err
	}

	result, err := Run(input, nil)
	if err != nil {
		return nil, err
	}

	s.applyResult(ctx, workspaceID, result, linkedMinutes)

	return result, nil
}

// PreviewWorkspace simulates a run for a workspace without touching storage
func (s *PlanningService) PreviewWorkspace(ctx context.Context, workspaceID primitive.ObjectID, options RunOptions) (*PreviewResult, error) {
	input, _, err := s.buildInput(ctx, workspaceID, options)
	if err != nil {
		return nil, err
	}

	return Preview(input)
}

// linkedTaskMinutes remembers how many minutes each stored event contributed to its
// task so deletions can decrement the task counters
type linkedTaskMinutes map[string]struct {
	taskID  primitive.ObjectID
	minutes int
}

func (s *PlanningService) buildInput(ctx context.Context, workspaceID primitive.ObjectID, options RunOptions) (*Input, linkedTaskMinutes, error) {
	entry, err := s.loadSettings(ctx, workspaceID)
	if err != nil {
		return nil, nil, err
	}

	location, err := date.LoadTimezone(entry.Settings.Timezone)
	if err != nil {
		return nil, nil, err
	}

	now := options.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	windowDays := options.WindowDays
	if windowDays <= 0 {
		windowDays = entry.Settings.WindowDays
	}
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	window := date.Timespan{Start: now, End: date.AddZonedDays(now, location, windowDays)}

	var habits []Habit
	var tasks []Task
	var events []*calendar.Event

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var groupErr error
		habits, groupErr = s.workspaceRepository.FindSchedulableHabits(groupCtx, workspaceID)
		return groupErr
	})

	group.Go(func() error {
		var groupErr error
		tasks, groupErr = s.workspaceRepository.FindSchedulableTasks(groupCtx, workspaceID)
		return groupErr
	})

	group.Go(func() error {
		var groupErr error
		events, groupErr = s.calendarRepository.FindEventsInWindow(groupCtx, workspaceID, window)
		return groupErr
	})

	err = group.Wait()
	if err != nil {
		return nil, nil, err
	}

	linked := linkedTaskMinutes{}
	var blocking []calendar.Event
	for _, event := range events {
		if event.IsAllDay() {
			continue
		}

		if event.Link != nil && event.Link.Kind == calendar.LinkKindTask {
			if taskID, idErr := primitive.ObjectIDFromHex(event.Link.OwnerID); idErr == nil {
				linked[event.ID.Hex()] = struct {
					taskID  primitive.ObjectID
					minutes int
				}{taskID: taskID, minutes: event.Link.ScheduledMinutes}
			}
		}

		blocking = append(blocking, *event)
	}

	input := &Input{
		Now:            now,
		Timezone:       entry.Settings.Timezone,
		WindowDays:     windowDays,
		FullReschedule: options.FullReschedule,
		Hours:          entry.Hours,
		Breaks:         entry.Settings.Breaks,
		Habits:         habits,
		Tasks:          tasks,
		Events:         blocking,
	}

	return input, linked, nil
}

func (s *PlanningService) loadSettings(ctx context.Context, workspaceID primitive.ObjectID) (*SettingsCacheEntry, error) {
	key := "workspace-settings-" + workspaceID.Hex()

	entry, err := s.settingsCache.Get(ctx, key)
	if err == nil && entry.Settings != nil && entry.Hours != nil {
		return entry, nil
	}

	settings, err := s.workspaceRepository.FindSettings(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	hours, err := s.workspaceRepository.FindHourSettings(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	entry = &SettingsCacheEntry{Settings: settings, Hours: hours}

	cacheErr := s.settingsCache.Add(ctx, key, entry)
	if cacheErr != nil {
		s.logger.Warning("Could not cache workspace settings", cacheErr)
	}

	return entry, nil
}

// applyResult deletes obsoleted events and inserts planned ones, keeping the task
// minute counters in sync. Every mutation is an independent unit of work.
func (s *PlanningService) applyResult(ctx context.Context, workspaceID primitive.ObjectID, result *Result, linked linkedTaskMinutes) {
	for _, deleteID := range result.DeleteIDs {
		eventID, err := primitive.ObjectIDFromHex(deleteID)
		if err != nil {
			s.logger.Warning("Skipping deletion of an event with a malformed id", err)
			continue
		}

		err = s.calendarRepository.DeleteEvent(ctx, workspaceID, eventID)
		if err != nil {
			s.logger.Warning("Could not delete an obsoleted event", err)
			continue
		}

		if link, ok := linked[deleteID]; ok && link.minutes > 0 {
			err = s.workspaceRepository.AddScheduledMinutes(ctx, workspaceID, link.taskID, -link.minutes)
			if err != nil {
				s.logger.Warning("Could not decrement scheduled minutes after deletion", err)
			}
		}
	}

	for _, planned := range result.Events {
		event := &calendar.Event{
			WorkspaceID: workspaceID,
			Title:       planned.Title,
			Date:        date.Timespan{Start: planned.StartAt, End: planned.EndAt},
			Color:       planned.Color,
		}

		var link *calendar.Link
		switch planned.Kind {
		case EventKindHabit:
			link = &calendar.Link{
				Kind:           calendar.LinkKindHabit,
				OwnerID:        planned.OwnerID,
				OccurrenceDate: planned.OccurrenceDate,
			}
		case EventKindTask:
			link = &calendar.Link{
				Kind:             calendar.LinkKindTask,
				OwnerID:          planned.OwnerID,
				ScheduledMinutes: planned.ScheduledMinutes,
			}
		case EventKindBreak:
			link = &calendar.Link{Kind: calendar.LinkKindBreak}
		}

		err := s.calendarRepository.CreateEvent(ctx, event, link)
		if err != nil {
			s.logger.Warning("Could not create a planned event, skipping it", err)
			continue
		}

		if planned.Kind == EventKindTask && planned.ScheduledMinutes > 0 {
			taskID, idErr := primitive.ObjectIDFromHex(planned.OwnerID)
			if idErr != nil {
				continue
			}

			err = s.workspaceRepository.AddScheduledMinutes(ctx, workspaceID, taskID, planned.ScheduledMinutes)
			if err != nil {
				s.logger.Warning("Could not increment scheduled minutes after creation", err)
			}
		}
	}
}
