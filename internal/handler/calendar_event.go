package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

const clockLayout = "15:04"

type CalendarEventHandler struct {
	eventStore  *store.EventStore
	memberStore *store.FamilyMemberStore
	notify      ws.Notifier
	logger      *slog.Logger
}

func NewCalendarEventHandler(es *store.EventStore, ms *store.FamilyMemberStore, notify ws.Notifier, logger *slog.Logger) *CalendarEventHandler {
	return &CalendarEventHandler{eventStore: es, memberStore: ms, notify: notify, logger: logger}
}

type eventRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	AllDay      *bool   `json:"all_day"`
	AssignedTo  *int64  `json:"assigned_to"`
	Source      *string `json:"source"`
	ExternalID  *string `json:"external_id"`
}

// apply merges req into e and reports the first invalid field. A null or
// omitted start_time on create makes the event all day.
func (req eventRequest) apply(e *model.CalendarEvent) string {
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.Date != nil {
		e.Date = strings.TrimSpace(*req.Date)
	}
	if req.StartTime != nil {
		e.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		e.EndTime = req.EndTime
	}
	if req.AssignedTo != nil {
		e.AssignedTo = req.AssignedTo
	}
	if req.AllDay != nil {
		e.AllDay = *req.AllDay
	}
	if e.AllDay {
		e.StartTime, e.EndTime = nil, nil
	}

	if e.Title == "" {
		return "title is required"
	}
	if _, err := time.Parse(time.DateOnly, e.Date); err != nil {
		return "date must be a date in YYYY-MM-DD format"
	}
	var start, end time.Time
	var err error
	if e.StartTime != nil {
		if start, err = time.Parse(clockLayout, *e.StartTime); err != nil {
			return "start_time must be HH:MM"
		}
	}
	if e.EndTime != nil {
		if end, err = time.Parse(clockLayout, *e.EndTime); err != nil {
			return "end_time must be HH:MM"
		}
		if e.StartTime == nil {
			return "end_time requires start_time"
		}
		if !start.Before(end) {
			return "start_time must be before end_time"
		}
	}
	if e.StartTime == nil {
		e.AllDay = true
	}
	return ""
}

func (h *CalendarEventHandler) checkMember(w http.ResponseWriter, r *http.Request, id *int64) bool {
	if id == nil {
		return true
	}
	member, err := h.memberStore.GetByID(r.Context(), *id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check family member")
		return false
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return false
	}
	return true
}

func (h *CalendarEventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e := model.CalendarEvent{Source: model.SourceManual}
	if req.Source != nil {
		e.Source = model.EventSource(strings.ToUpper(strings.TrimSpace(*req.Source)))
		if !e.Source.Valid() {
			writeError(w, http.StatusUnprocessableEntity, "source must be MANUAL, ICLOUD or GOOGLE")
			return
		}
	}
	e.ExternalID = req.ExternalID
	if problem := req.apply(&e); problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	if !h.checkMember(w, r, e.AssignedTo) {
		return
	}

	event, err := h.eventStore.Create(r.Context(), e)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create event")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityCalendarEvent, ws.ActionCreated, event.ID, nil))
	writeJSON(w, http.StatusCreated, event)
}

func (h *CalendarEventHandler) List(w http.ResponseWriter, r *http.Request) {
	start, err := queryDate(r, "start_date")
	if err == nil && start == nil {
		err = errRequired("start_date")
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	end, err := queryDate(r, "end_date")
	if err == nil && end == nil {
		err = errRequired("end_date")
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if end.Before(*start) {
		writeError(w, http.StatusUnprocessableEntity, "end_date must not be before start_date")
		return
	}
	assignedTo, err := queryInt64(r, "assigned_to")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	events, err := h.eventStore.ListByDateRange(r.Context(), *start, *end, assignedTo)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(events))
}

func (h *CalendarEventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	event, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "calendar event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// manualEvent loads the event for a write, answering 404 or 400 when it is
// missing or mirrored from an external calendar.
func (h *CalendarEventHandler) manualEvent(w http.ResponseWriter, r *http.Request, verb string) (*model.CalendarEvent, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	event, err := h.eventStore.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get event")
		return nil, false
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "calendar event not found")
		return nil, false
	}
	if event.Source != model.SourceManual {
		writeError(w, http.StatusBadRequest, "only manually created events can be "+verb)
		return nil, false
	}
	return event, true
}

func (h *CalendarEventHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.manualEvent(w, r, "edited")
	if !ok {
		return
	}

	var req eventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	e := *existing
	if req.StartTime != nil && req.AllDay == nil {
		e.AllDay = false
	}
	if problem := req.apply(&e); problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	if req.AssignedTo != nil && !h.checkMember(w, r, e.AssignedTo) {
		return
	}

	event, err := h.eventStore.Update(r.Context(), e)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update event")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityCalendarEvent, ws.ActionUpdated, event.ID, nil))
	writeJSON(w, http.StatusOK, event)
}

func (h *CalendarEventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.manualEvent(w, r, "deleted")
	if !ok {
		return
	}

	if err := h.eventStore.Delete(r.Context(), existing.ID); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete event")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityCalendarEvent, ws.ActionDeleted, existing.ID, nil))
	writeJSON(w, http.StatusOK, existing)
}
