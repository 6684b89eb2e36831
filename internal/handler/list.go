package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type ListHandler struct {
	store  *store.ListStore
	notify ws.Notifier
	logger *slog.Logger
}

func NewListHandler(s *store.ListStore, notify ws.Notifier, logger *slog.Logger) *ListHandler {
	return &ListHandler{store: s, notify: notify, logger: logger}
}

type listRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Icon  *string `json:"icon"`
}

func validListName(name string) string {
	switch {
	case name == "":
		return "name is required"
	case utf8.RuneCountInString(name) > 100:
		return "name must be at most 100 characters"
	}
	return ""
}

func (h *ListHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	lists, err := h.store.List(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list lists")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(lists))
}

func (h *ListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	l, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get list")
		return
	}
	if l == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *ListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(deref(req.Name))
	if problem := validListName(name); problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	l, err := h.store.Create(r.Context(), name, strings.TrimSpace(deref(req.Color)), strings.TrimSpace(deref(req.Icon)))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create list")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionCreated, l.ID, nil))
	writeJSON(w, http.StatusCreated, l)
}

func (h *ListHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get list")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	var req listRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name, color, icon := existing.Name, existing.Color, existing.Icon
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if problem := validListName(name); problem != "" {
			writeError(w, http.StatusUnprocessableEntity, problem)
			return
		}
	}
	if req.Color != nil {
		color = strings.TrimSpace(*req.Color)
	}
	if req.Icon != nil {
		icon = strings.TrimSpace(*req.Icon)
	}

	l, err := h.store.Update(r.Context(), id, name, color, icon)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update list")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionUpdated, l.ID, nil))
	writeJSON(w, http.StatusOK, l)
}

func (h *ListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get list")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete list")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityList, ws.ActionDeleted, id, nil))
	writeJSON(w, http.StatusOK, existing)
}
