package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dukerupert/homebase/internal/handler"
	"github.com/dukerupert/homebase/internal/middleware"
	"github.com/dukerupert/homebase/internal/responsibility"
	"github.com/dukerupert/homebase/internal/store"
	"github.com/dukerupert/homebase/internal/upload"
	ws "github.com/dukerupert/homebase/internal/websocket"
)

type Options struct {
	CORSOrigins []string

	// Uploads is where images are stored. StaticDir, when set, is served at
	// /uploads/ for the disk backend.
	Uploads   upload.Backend
	StaticDir string

	// UploadRateLimit is uploads allowed per client per minute.
	UploadRateLimit int
}

type Server struct {
	db     *sql.DB
	hub    *ws.Hub
	opts   Options
	logger *slog.Logger

	familyMemberH   *handler.FamilyMemberHandler
	responsibilityH *handler.ResponsibilityHandler
	listH           *handler.ListHandler
	taskH           *handler.TaskHandler
	calendarEventH  *handler.CalendarEventHandler
	uploadH         *handler.UploadHandler
	rateLimiter     *middleware.RateLimiter
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyMemberStore := store.NewFamilyMemberStore(db)
	listStore := store.NewListStore(db)
	taskStore := store.NewTaskStore(db)
	eventStore := store.NewEventStore(db)
	responsibilitySvc := responsibility.NewService(store.NewResponsibilityStore(db), logger.With("component", "responsibility"))

	if opts.UploadRateLimit <= 0 {
		opts.UploadRateLimit = 30
	}

	return &Server{
		db:     db,
		hub:    hub,
		opts:   opts,
		logger: logger,

		familyMemberH:   handler.NewFamilyMemberHandler(familyMemberStore, hub, logger.With("component", "family_member")),
		responsibilityH: handler.NewResponsibilityHandler(responsibilitySvc, hub, logger.With("component", "responsibility")),
		listH:           handler.NewListHandler(listStore, hub, logger.With("component", "list")),
		taskH:           handler.NewTaskHandler(taskStore, listStore, familyMemberStore, hub, logger.With("component", "task")),
		calendarEventH:  handler.NewCalendarEventHandler(eventStore, familyMemberStore, hub, logger.With("component", "calendar")),
		uploadH:         handler.NewUploadHandler(upload.NewUploader(opts.Uploads, logger.With("component", "upload")), logger.With("component", "upload")),
		rateLimiter:     middleware.NewRateLimiter(),
	}
}

// Hub returns the realtime hub mutations are broadcast on.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	h = middleware.CORS(s.opts.CORSOrigins)(h)
	h = chimw.Recoverer(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return chimw.RequestID(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /family-members", s.familyMemberH.List)
	mux.HandleFunc("POST /family-members", s.familyMemberH.Create)
	mux.HandleFunc("GET /family-members/{id}", s.familyMemberH.Get)
	mux.HandleFunc("PATCH /family-members/{id}", s.familyMemberH.Update)
	mux.HandleFunc("DELETE /family-members/{id}", s.familyMemberH.Delete)

	mux.HandleFunc("GET /responsibilities", s.responsibilityH.List)
	mux.HandleFunc("POST /responsibilities", s.responsibilityH.Create)
	mux.HandleFunc("GET /responsibilities/completions", s.responsibilityH.Completions)
	mux.HandleFunc("GET /responsibilities/completions/range", s.responsibilityH.CompletionsRange)
	mux.HandleFunc("GET /responsibilities/{id}", s.responsibilityH.Get)
	mux.HandleFunc("PATCH /responsibilities/{id}", s.responsibilityH.Update)
	mux.HandleFunc("DELETE /responsibilities/{id}", s.responsibilityH.Delete)
	mux.HandleFunc("POST /responsibilities/{id}/complete", s.responsibilityH.Complete)

	mux.HandleFunc("GET /lists", s.listH.List)
	mux.HandleFunc("POST /lists", s.listH.Create)
	mux.HandleFunc("GET /lists/{id}", s.listH.Get)
	mux.HandleFunc("PATCH /lists/{id}", s.listH.Update)
	mux.HandleFunc("DELETE /lists/{id}", s.listH.Delete)

	mux.HandleFunc("GET /tasks", s.taskH.List)
	mux.HandleFunc("POST /tasks", s.taskH.Create)
	mux.HandleFunc("GET /tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PATCH /tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /tasks/{id}", s.taskH.Delete)

	mux.HandleFunc("GET /calendar-events", s.calendarEventH.List)
	mux.HandleFunc("POST /calendar-events", s.calendarEventH.Create)
	mux.HandleFunc("GET /calendar-events/{id}", s.calendarEventH.Get)
	mux.HandleFunc("PATCH /calendar-events/{id}", s.calendarEventH.Update)
	mux.HandleFunc("DELETE /calendar-events/{id}", s.calendarEventH.Delete)

	uploadLimit := middleware.RateLimit(s.rateLimiter, middleware.RealIP, s.opts.UploadRateLimit, time.Minute)
	mux.Handle("POST /upload/family-photo", uploadLimit(http.HandlerFunc(s.uploadH.FamilyPhoto)))
	mux.Handle("POST /upload/responsibility-icon", uploadLimit(http.HandlerFunc(s.uploadH.ResponsibilityIcon)))
	mux.HandleFunc("GET /upload/stock-icons", s.uploadH.StockIcons)
	if s.opts.StaticDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.opts.StaticDir))))
	}

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, originHosts(s.opts.CORSOrigins), s.logger.With("component", "websocket")))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// originHosts turns CORS origins into the host patterns websocket.Accept
// matches against.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
