package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukerupert/homebase/internal/database"
	"github.com/dukerupert/homebase/internal/responsibility"
	"github.com/dukerupert/homebase/internal/store"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []ws.Message
}

func (n *recordingNotifier) Broadcast(msg ws.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *recordingNotifier) last(t *testing.T) ws.Message {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.msgs, "no broadcast recorded")
	return n.msgs[len(n.msgs)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type testAPI struct {
	db     *sql.DB
	mux    *http.ServeMux
	notify *recordingNotifier
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notify := &recordingNotifier{}

	members := store.NewFamilyMemberStore(db)
	lists := store.NewListStore(db)
	svc := responsibility.NewService(store.NewResponsibilityStore(db), logger)

	fm := NewFamilyMemberHandler(members, notify, logger)
	rh := NewResponsibilityHandler(svc, notify, logger)
	lh := NewListHandler(lists, notify, logger)
	th := NewTaskHandler(store.NewTaskStore(db), lists, members, notify, logger)
	eh := NewCalendarEventHandler(store.NewEventStore(db), members, notify, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /family-members", fm.List)
	mux.HandleFunc("POST /family-members", fm.Create)
	mux.HandleFunc("GET /family-members/{id}", fm.Get)
	mux.HandleFunc("PATCH /family-members/{id}", fm.Update)
	mux.HandleFunc("DELETE /family-members/{id}", fm.Delete)

	mux.HandleFunc("GET /responsibilities", rh.List)
	mux.HandleFunc("POST /responsibilities", rh.Create)
	mux.HandleFunc("GET /responsibilities/completions", rh.Completions)
	mux.HandleFunc("GET /responsibilities/completions/range", rh.CompletionsRange)
	mux.HandleFunc("GET /responsibilities/{id}", rh.Get)
	mux.HandleFunc("PATCH /responsibilities/{id}", rh.Update)
	mux.HandleFunc("DELETE /responsibilities/{id}", rh.Delete)
	mux.HandleFunc("POST /responsibilities/{id}/complete", rh.Complete)

	mux.HandleFunc("GET /lists", lh.List)
	mux.HandleFunc("POST /lists", lh.Create)
	mux.HandleFunc("GET /lists/{id}", lh.Get)
	mux.HandleFunc("PATCH /lists/{id}", lh.Update)
	mux.HandleFunc("DELETE /lists/{id}", lh.Delete)

	mux.HandleFunc("GET /tasks", th.List)
	mux.HandleFunc("POST /tasks", th.Create)
	mux.HandleFunc("GET /tasks/{id}", th.Get)
	mux.HandleFunc("PATCH /tasks/{id}", th.Update)
	mux.HandleFunc("DELETE /tasks/{id}", th.Delete)

	mux.HandleFunc("GET /calendar-events", eh.List)
	mux.HandleFunc("POST /calendar-events", eh.Create)
	mux.HandleFunc("GET /calendar-events/{id}", eh.Get)
	mux.HandleFunc("PATCH /calendar-events/{id}", eh.Update)
	mux.HandleFunc("DELETE /calendar-events/{id}", eh.Delete)

	return &testAPI{db: db, mux: mux, notify: notify}
}

// do sends body (JSON-encoded unless nil) and returns the recorder.
func (a *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (a *testAPI) createMember(t *testing.T, name string) int64 {
	t.Helper()
	m, err := store.NewFamilyMemberStore(a.db).Create(context.Background(), name, "#3B82F6", "")
	require.NoError(t, err)
	return m.ID
}

func (a *testAPI) createList(t *testing.T, name string) int64 {
	t.Helper()
	l, err := store.NewListStore(a.db).Create(context.Background(), name, "", "")
	require.NoError(t, err)
	return l.ID
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}
