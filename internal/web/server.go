// Package web renders extracted announcements as an HTML table and a JSON feed.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"AnalystScanner/internal/domain"
)

const dayLayout = "2006-01-02"

// Board supplies the announcements shown for a day.
type Board interface {
	Board(ctx context.Context, day time.Time) ([]domain.Announcement, error)
}

// Handler serves the table view, the JSON feed and a health probe.
type Handler struct {
	board    Board
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
	tmpl     *template.Template
	mux      *http.ServeMux
}

type tablePage struct {
	Day           string
	Announcements []domain.Announcement
}

// NewHandler builds the routes; days without a ?day= parameter default to today in loc.
func NewHandler(board Board, loc *time.Location, logger *slog.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	h := &Handler{
		board:    board,
		logger:   logger,
		location: loc,
		now:      time.Now,
		tmpl:     template.Must(template.New("table").Parse(tableHTMLTemplate)),
		mux:      http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /{$}", h.table)
	h.mux.HandleFunc("GET /api/announcements", h.feed)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) {
	day, records, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, tablePage{Day: day.Format(dayLayout), Announcements: records}); err != nil {
		h.error("render table", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	_, records, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		h.error("encode feed", err)
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (time.Time, []domain.Announcement, bool) {
	day, err := h.resolveDay(r.URL.Query().Get("day"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return time.Time{}, nil, false
	}

	records, err := h.board.Board(r.Context(), day)
	if err != nil {
		h.error("load announcements", err, "day", day.Format(dayLayout))
		http.Error(w, "could not load announcements", http.StatusBadGateway)
		return time.Time{}, nil, false
	}
	if records == nil {
		records = []domain.Announcement{}
	}
	return day, records, true
}

func (h *Handler) resolveDay(raw string) (time.Time, error) {
	if raw == "" {
		now := h.now().In(h.location)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location), nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, h.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD", raw)
	}
	return day, nil
}

func (h *Handler) error(msg string, err error, args ...any) {
	if h.logger != nil {
		h.logger.Error(msg, append([]any{"error", err}, args...)...)
	}
}

// Serve runs an HTTP server on addr until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if logger != nil {
			logger.Info("listening", "addr", addr)
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
