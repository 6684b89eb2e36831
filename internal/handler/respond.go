package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/responsibility"
	"github.com/dukerupert/homebase/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to a status. Unrecognized errors are
// logged and reported as 500 with msg.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	var verr *responsibility.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, responsibility.ErrNotFound):
		writeError(w, http.StatusNotFound, "responsibility not found")
	case errors.Is(err, responsibility.ErrMemberNotFound):
		writeError(w, http.StatusNotFound, "family member not found")
	case errors.Is(err, store.ErrSystemMember):
		writeError(w, http.StatusBadRequest, "cannot modify a system family member")
	case errors.Is(err, store.ErrMemberInUse):
		writeError(w, http.StatusConflict, "family member still has tasks or responsibilities assigned")
	case database.IsUniqueViolation(err):
		writeError(w, http.StatusConflict, "a record with these values already exists")
	case database.IsCheckViolation(err):
		writeError(w, http.StatusUnprocessableEntity, "value violates a data constraint")
	default:
		logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// queryInt64 parses an optional integer query parameter; absent yields nil.
func queryInt64(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &v, nil
}

// queryPage reads skip and limit, rejecting negatives.
func queryPage(r *http.Request) (skip, limit int, err error) {
	for _, p := range []struct {
		name string
		dst  *int
	}{{"skip", &skip}, {"limit", &limit}} {
		v, err := queryInt64(r, p.name)
		if err != nil {
			return 0, 0, err
		}
		if v == nil {
			continue
		}
		if *v < 0 {
			return 0, 0, fmt.Errorf("%s must not be negative", p.name)
		}
		*p.dst = int(*v)
	}
	return skip, limit, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return &d, nil
}

func errRequired(name string) error {
	return fmt.Errorf("%s is required", name)
}
