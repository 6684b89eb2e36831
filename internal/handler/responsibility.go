package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/homebase/internal/responsibility"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type ResponsibilityHandler struct {
	svc    *responsibility.Service
	notify ws.Notifier
	logger *slog.Logger
}

func NewResponsibilityHandler(svc *responsibility.Service, notify ws.Notifier, logger *slog.Logger) *ResponsibilityHandler {
	return &ResponsibilityHandler{svc: svc, notify: notify, logger: logger}
}

type responsibilityRequest struct {
	Title       *string  `json:"title"`
	Categories  []string `json:"categories"`
	AssignedTo  *int64   `json:"assigned_to"`
	Frequency   []string `json:"frequency"`
	Description *string  `json:"description"`
	IconURL     *string  `json:"icon_url"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *ResponsibilityHandler) List(w http.ResponseWriter, r *http.Request) {
	assignedTo, err := queryInt64(r, "assigned_to")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	skip, limit, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	items, err := h.svc.List(r.Context(), responsibility.Filter{AssignedTo: assignedTo, Skip: skip, Limit: limit})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list responsibilities")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ResponsibilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get responsibility")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ResponsibilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req responsibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AssignedTo == nil {
		writeError(w, http.StatusUnprocessableEntity, "assigned_to: is required")
		return
	}

	item, err := h.svc.Create(r.Context(), responsibility.CreateInput{
		Title:       deref(req.Title),
		Categories:  req.Categories,
		AssignedTo:  *req.AssignedTo,
		Frequency:   req.Frequency,
		Description: deref(req.Description),
		IconURL:     deref(req.IconURL),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create responsibility")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityResponsibility, ws.ActionCreated, item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ResponsibilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	var req responsibilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.svc.Update(r.Context(), id, responsibility.Patch{
		Title:       req.Title,
		Categories:  req.Categories,
		AssignedTo:  req.AssignedTo,
		Frequency:   req.Frequency,
		Description: req.Description,
		IconURL:     req.IconURL,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update responsibility")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityResponsibility, ws.ActionUpdated, item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *ResponsibilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	item, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to delete responsibility")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityResponsibility, ws.ActionDeleted, item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

// Complete toggles one category instance of a responsibility for a date.
func (h *ResponsibilityHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid id")
		return
	}

	q := r.URL.Query()
	date, err := responsibility.ParseDate("date", q.Get("date"))
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}
	memberID, err := queryInt64(r, "family_member_id")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if memberID == nil {
		writeError(w, http.StatusUnprocessableEntity, "family_member_id: is required")
		return
	}

	res, err := h.svc.Toggle(r.Context(), responsibility.ToggleInput{
		ResponsibilityID: id,
		Date:             date,
		FamilyMemberID:   *memberID,
		Category:         q.Get("category"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to toggle completion")
		return
	}

	action := ws.ActionUncompleted
	if res.Completed {
		action = ws.ActionCompleted
	}
	h.notify.Broadcast(ws.NewMessage(ws.EntityResponsibility, action, id, map[string]any{
		"date":             date.Format(time.DateOnly),
		"category":         res.Category,
		"family_member_id": *memberID,
	}))

	writeJSON(w, http.StatusOK, res)
}

func (h *ResponsibilityHandler) Completions(w http.ResponseWriter, r *http.Request) {
	date, err := responsibility.ParseDate("date", r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	completions, err := h.svc.CompletionsOn(r.Context(), date)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list completions")
		return
	}
	writeJSON(w, http.StatusOK, completions)
}

func (h *ResponsibilityHandler) CompletionsRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := responsibility.ParseDate("start_date", q.Get("start_date"))
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}
	end, err := responsibility.ParseDate("end_date", q.Get("end_date"))
	if err != nil {
		writeServiceError(w, h.logger, err, "")
		return
	}

	completions, err := h.svc.CompletionsInRange(r.Context(), start, end)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list completions")
		return
	}
	writeJSON(w, http.StatusOK, completions)
}
