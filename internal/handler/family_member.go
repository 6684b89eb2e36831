package handler

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
	"golang.org/x/text/unicode/norm"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

const (
	defaultMemberColor = "#3B82F6"
	maxMemberName      = 50
)

type FamilyMemberHandler struct {
	store  *store.FamilyMemberStore
	notify ws.Notifier
	logger *slog.Logger
}

func NewFamilyMemberHandler(s *store.FamilyMemberStore, notify ws.Notifier, logger *slog.Logger) *FamilyMemberHandler {
	return &FamilyMemberHandler{store: s, notify: notify, logger: logger}
}

type familyMemberRequest struct {
	Name     *string `json:"name"`
	Color    *string `json:"color"`
	PhotoURL *string `json:"photo_url"`
}

// normalizeName trims and NFC-normalizes so that visually identical names
// collide on the unique index.
func normalizeName(name string) (string, string) {
	name = norm.NFC.String(strings.TrimSpace(name))
	switch {
	case name == "":
		return "", "name is required"
	case utf8.RuneCountInString(name) > maxMemberName:
		return "", "name must be at most 50 characters"
	}
	return name, ""
}

func (h *FamilyMemberHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	members, err := h.store.List(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list family members")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(members))
}

func (h *FamilyMemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	member, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get family member")
		return
	}
	if member == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name, problem := normalizeName(deref(req.Name))
	if problem != "" {
		writeError(w, http.StatusUnprocessableEntity, problem)
		return
	}

	color := strings.TrimSpace(deref(req.Color))
	if color == "" {
		color = defaultMemberColor
	}
	if !hexColorRegexp.MatchString(color) {
		writeError(w, http.StatusUnprocessableEntity, "color must be a hex color (e.g. #FF0000)")
		return
	}

	exists, err := h.store.NameExists(r.Context(), name, 0)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Create(r.Context(), name, color, strings.TrimSpace(deref(req.PhotoURL)))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create family member")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityFamilyMember, ws.ActionCreated, member.ID, nil))
	writeJSON(w, http.StatusCreated, member)
}

func (h *FamilyMemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to get family member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}
	if existing.IsSystem {
		writeServiceError(w, h.logger, store.ErrSystemMember, "")
		return
	}

	var req familyMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	name := existing.Name
	if req.Name != nil {
		var problem string
		if name, problem = normalizeName(*req.Name); problem != "" {
			writeError(w, http.StatusUnprocessableEntity, problem)
			return
		}
	}

	color := existing.Color
	if req.Color != nil {
		color = strings.TrimSpace(*req.Color)
		if !hexColorRegexp.MatchString(color) {
			writeError(w, http.StatusUnprocessableEntity, "color must be a hex color (e.g. #FF0000)")
			return
		}
	}

	photoURL := existing.PhotoURL
	if req.PhotoURL != nil {
		photoURL = strings.TrimSpace(*req.PhotoURL)
	}

	exists, err := h.store.NameExists(r.Context(), name, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a family member with that name already exists")
		return
	}

	member, err := h.store.Update(r.Context(), id, name, color, photoURL)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update family member")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityFamilyMember, ws.ActionUpdated, member.ID, nil))
	writeJSON(w, http.StatusOK, member)
}

func (h *FamilyMemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to delete family member")
		return
	}
	if deleted == nil {
		writeError(w, http.StatusNotFound, "family member not found")
		return
	}

	h.notify.Broadcast(ws.NewMessage(ws.EntityFamilyMember, ws.ActionDeleted, deleted.ID, nil))
	writeJSON(w, http.StatusOK, deleted)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
