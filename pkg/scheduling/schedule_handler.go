package scheduling

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/dayplan-app/dayplan-backend/pkg/communication"
	"github.com/dayplan-app/dayplan-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler handles all scheduling related API calls
type Handler struct {
	Service         *PlanningService
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// ScheduleRequest is the optional body of a schedule or preview call
type ScheduleRequest struct {
	WindowDays     int  `json:"windowDays" validate:"omitempty,gte=1,lte=90"`
	FullReschedule bool `json:"fullReschedule"`
}

func (handler *Handler) decodeRequest(request *http.Request) (*ScheduleRequest, error) {
	scheduleRequest := ScheduleRequest{}

	err := json.NewDecoder(request.Body).Decode(&scheduleRequest)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	v := validator.New()
	err = v.Struct(scheduleRequest)
	if err != nil {
		return nil, err
	}

	return &scheduleRequest, nil
}

// ScheduleWorkspace runs the scheduler for a workspace and persists the outcome
func (handler *Handler) ScheduleWorkspace(writer http.ResponseWriter, request *http.Request) {
	workspaceID, err := primitive.ObjectIDFromHex(mux.Vars(request)["workspaceID"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "WorkspaceID malformed", err)
		return
	}

	scheduleRequest, err := handler.decodeRequest(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	result, err := handler.Service.ScheduleWorkspace(request.Context(), workspaceID, RunOptions{
		WindowDays:     scheduleRequest.WindowDays,
		FullReschedule: scheduleRequest.FullReschedule,
	})
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			handler.ResponseManager.RespondWithError(writer, http.StatusConflict,
				"A scheduling run is already in progress", err)
			return
		}

		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while scheduling the workspace", err)
		return
	}

	handler.ResponseManager.Respond(writer, result)
}

// PreviewWorkspace simulates a scheduler run without persisting anything
func (handler *Handler) PreviewWorkspace(writer http.ResponseWriter, request *http.Request) {
	workspaceID, err := primitive.ObjectIDFromHex(mux.Vars(request)["workspaceID"])
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "WorkspaceID malformed", err)
		return
	}

	scheduleRequest, err := handler.decodeRequest(request)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
		return
	}

	preview, err := handler.Service.PreviewWorkspace(request.Context(), workspaceID, RunOptions{
		WindowDays:     scheduleRequest.WindowDays,
		FullReschedule: scheduleRequest.FullReschedule,
	})
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while previewing the workspace schedule", err)
		return
	}

	handler.ResponseManager.Respond(writer, preview)
}
