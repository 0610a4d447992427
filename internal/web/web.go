package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"calwidget/internal/calendar"
	"calwidget/internal/config"
	appLog "calwidget/internal/log"
	"calwidget/internal/model"
)

// Server exposes the widget's JSON contract over HTTP: outbound entry
// objects, inbound changesets and delta payloads. It owns no entries itself;
// all state lives in the calendar registry.
type Server struct {
	cfg *config.Config
	cal *calendar.Calendar
	mux *http.ServeMux
}

// NewServer constructs a new Server around the given registry.
func NewServer(cfg *config.Config, cal *calendar.Calendar) *Server {
	s := &Server{
		cfg: cfg,
		cal: cal,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, with Basic Auth applied
// when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays reachable for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calwidget", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/entries", s.handleListEntries)
	s.mux.HandleFunc("POST /api/entries", s.handleCreateEntry)
	s.mux.HandleFunc("GET /api/entries/{id}", s.handleGetEntry)
	s.mux.HandleFunc("PATCH /api/entries/{id}", s.handleUpdateEntry)
	s.mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)
	s.mux.HandleFunc("POST /api/entries/{id}/move", s.handleShiftEntry(calendar.ShiftMove))
	s.mux.HandleFunc("POST /api/entries/{id}/resize", s.handleShiftEntry(calendar.ShiftResize))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// entriesResponse is the JSON response shape for GET /api/entries.
type entriesResponse struct {
	Entries         []map[string]any `json:"entries"`
	Count           int              `json:"count"`
	DisplayTimeZone string           `json:"display_timezone"`
	WeekStart       string           `json:"week_start"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	snap := s.cal.Snapshot()
	writeJSON(w, http.StatusOK, entriesResponse{
		Entries:         snap,
		Count:           len(snap),
		DisplayTimeZone: s.cfg.Timezone,
		WeekStart:       s.cfg.WeekStart,
	})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	obj, ok := s.cal.SnapshotOne(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// createRequest is the body for POST /api/entries. start and end accept the
// same formats a changeset does.
type createRequest struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Start  string  `json:"start"`
	End    string  `json:"end"`
	AllDay bool    `json:"allDay"`
	Color  *string `json:"color"`
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var start, end time.Time
	if req.Start != "" {
		t, err := model.ParseLocalDateTime(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start = t
	}
	if req.End != "" {
		t, err := model.ParseLocalDateTime(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		end = t
	}

	var color string
	if req.Color != nil {
		color = *req.Color
	}

	e, err := model.NewEntry(req.ID, req.Title, start, end, req.AllDay, color)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Serialized before Add publishes the entry to other requests.
	obj := e.ToJSON()
	if err := s.cal.Add(e); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	appLog.Info("entry created", "id", obj["id"], "title", req.Title)
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var changeset map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changeset); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// The changeset must name the entry it targets; the path only routes.
	if bodyID, _ := changeset["id"].(string); bodyID != id {
		writeError(w, http.StatusBadRequest, "changeset id does not match request path")
		return
	}

	obj, err := s.cal.ApplyChangeset(changeset)
	if err != nil {
		writeCalendarError(w, err)
		return
	}
	appLog.Info("entry updated", "id", id)
	writeJSON(w, http.StatusOK, obj)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.cal.Remove(id) {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	appLog.Info("entry deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleShiftEntry applies an inbound delta payload (either wire shape) to
// an entry. The move form shifts start and end together; the resize form
// shifts the end only, mirroring the widget's drag and resize gestures.
func (s *Server) handleShiftEntry(mode calendar.ShiftMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		d, err := model.DeltaFromJSON(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		obj, err := s.cal.ApplyDelta(id, d, mode)
		if err != nil {
			writeCalendarError(w, err)
			return
		}
		appLog.Info("entry shifted", "id", id, "delta", d.String(), "resize", mode == calendar.ShiftResize)
		writeJSON(w, http.StatusOK, obj)
	}
}

// writeCalendarError maps registry/model errors onto HTTP status codes.
func writeCalendarError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, calendar.ErrNotEditable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrIDMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
