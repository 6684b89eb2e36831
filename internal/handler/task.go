package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/homebase/internal/model"
	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type TaskHandler struct {
	tasks   *store.TaskStore
	lists   *store.ListStore
	members *store.FamilyMemberStore
	notify  ws.Notifier
	logger  *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ls *store.ListStore, ms *store.FamilyMemberStore, notify ws.Notifier, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, lists: ls, members: ms, notify: notify, logger: logger}
}

type taskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Completed   *bool      `json:"completed"`
	Important   *bool      `json:"important"`
	AssignedTo  *int64     `json:"assigned_to"`
	ListID      *int64     `json:"list_id"`
}

// apply merges req into t and reports the first invalid field.
func (req taskRequest) apply(t *model.Task) string {
	if req.Title != nil {
		t.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		t.Description = strings.TrimSpace(*req.Description)
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.Completed != nil {
		t.Completed = *req.Completed
	}
	if req.Important != nil {
		t.Important = *req.Important
	}
	if req.AssignedTo != nil {
		t.AssignedTo = *req.AssignedTo
	}
	if req.ListID != nil {
		t.ListID = *req.ListID
	}

	switch {
	case t.Title == "":
		return "title is required"
	case utf8.RuneCountInString(t.Title) > 100:
		return "title must be at most 100 characters"
	case utf8.RuneCountInString(t.Description) > 500:
		return "description must be at most 500 characters"
	case t.AssignedTo <= 0:
		return "assigned_to is required"
	case t.ListID <= 0:
		return "list_id is required"
	}
	return ""
}

// checkRefs answers 404 when the task's assignee or list does not exist.
func (h *TaskHandler) checkRefs(w http.ResponseWriter, r *http.Request, t *model.Task) bool {
	member, err := h.members.GetByID(r.Context(), t.AssignedTo)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check family member")
		return false
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return false
	}

	l, err := h.lists.GetByID(r.Context(), t.ListID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check list")
		return false
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return false
	}
	return true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.TaskFilter
	var err error
	if f.ListID, err = queryInt64(r, "list_id"); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if f.AssignedTo, err = queryInt64(r, "assigned_to"); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if f.Start, err = queryDate(r, "start_date"); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if f.End, err = queryDate(r, "end_date"); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if f.End != nil {
		// Inclusive of the whole end day.
		end := f.End.Add(24*time.Hour - time.Nanosecond)
		f.End = &end
	}
	if f.Skip, f.Limit, err = queryPage(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	tasks, err := h.tasks.List(r.Context(), f)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(tasks))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	t, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get task")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var t model.Task
	if problem := req.apply(&t); problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	if !h.checkRefs(w, r, &t) {
		return
	}

	created, err := h.tasks.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create task")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityTask, ws.ActionCreated, created.ID, map[string]any{"list_id": created.ListID}))
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t := *existing
	if problem := req.apply(&t); problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}
	if (req.AssignedTo != nil || req.ListID != nil) && !h.checkRefs(w, r, &t) {
		return
	}

	updated, err := h.tasks.Update(r.Context(), t)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update task")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityTask, ws.ActionUpdated, updated.ID, map[string]any{"list_id": updated.ListID}))
	writeJSON(w, http.StatusOK, updated)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete task")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityTask, ws.ActionDeleted, id, map[string]any{"list_id": existing.ListID}))
	writeJSON(w, http.StatusOK, existing)
}
