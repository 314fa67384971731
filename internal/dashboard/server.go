// Package dashboard serves the analysis results over HTTP for the
// rendering layer and pushes reload notifications over websockets.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"

	"github.com/p-n-ai/exam-atlas/internal/analysis"
	"github.com/p-n-ai/exam-atlas/internal/export"
	"github.com/p-n-ai/exam-atlas/internal/snapshot"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Snapshots is the part of snapshot.Manager the server needs.
type Snapshots interface {
	Current() (*snapshot.Snapshot, error)
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
	Subscribe(buffer int) (<-chan snapshot.Summary, func())
}

// Checker is a dependency probed by /readyz.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	// Checks are probed by /readyz, keyed by dependency name.
	Checks map[string]Checker
	// OriginPatterns are the cross-origin hosts allowed to open websockets.
	OriginPatterns []string
}

// Server is the dashboard HTTP API.
type Server struct {
	snaps Snapshots
	hub   *Hub
	opts  Options
}

// New creates a dashboard server.
func New(snaps Snapshots, opts Options) *Server {
	return &Server{
		snaps: snaps,
		hub:   NewHub(),
		opts:  opts,
	}
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/snapshot", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, snap)
	}))
	mux.HandleFunc("GET /api/curriculum", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, snap.Curriculum)
	}))
	mux.HandleFunc("GET /api/questions", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, map[string]any{
			"questions": snap.Questions,
			"report":    snap.QuestionReport,
		})
	}))
	mux.HandleFunc("GET /api/analysis", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, snap.Result)
	}))
	mux.HandleFunc("GET /api/series", s.withSnapshot(s.handleSeries))
	mux.HandleFunc("GET /api/statistics", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, snap.Statistics)
	}))
	mux.HandleFunc("GET /api/overview", s.withSnapshot(func(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
		writeJSON(w, http.StatusOK, snap.Overview)
	}))
	mux.HandleFunc("GET /api/export/xlsx", s.withSnapshot(handleExportXLSX))
	mux.HandleFunc("GET /api/export/csv", s.withSnapshot(handleExportCSV))
	mux.HandleFunc("POST /api/reload", s.handleReload)
	mux.HandleFunc("GET /api/ws", s.handleWebsocket)
	return mux
}

// Start forwards published snapshots to websocket clients until ctx is
// done. The subscription is in place when Start returns.
func (s *Server) Start(ctx context.Context) {
	updates, unsubscribe := s.snaps.Subscribe(4)

	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case sum, ok := <-updates:
				if !ok {
					return
				}
				s.hub.Broadcast(Message{Type: MessageSnapshot, Snapshot: &sum})
			}
		}
	}()
}

type snapshotHandler func(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot)

// withSnapshot answers 503 until a snapshot is published so clients never
// see partial data.
func (s *Server) withSnapshot(next snapshotHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := s.snaps.Current()
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "data unavailable")
			return
		}
		next(w, r, snap)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.snaps.Current(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "no snapshot"})
		return
	}
	for name, c := range s.opts.Checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": name})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot) {
	raw := r.URL.Query().Get("top")
	if raw == "" {
		writeJSON(w, http.StatusOK, snap.Series)
		return
	}
	top, err := strconv.Atoi(raw)
	if err != nil || top <= 0 {
		writeError(w, http.StatusBadRequest, "top must be a positive integer")
		return
	}
	writeJSON(w, http.StatusOK, analysis.BuildSeries(snap.Result, snap.Questions, top))
}

func handleExportXLSX(w http.ResponseWriter, _ *http.Request, snap *snapshot.Snapshot) {
	writeAttachment(w, snap.ID, xlsxContentType, "exam-analysis.xlsx", func(buf io.Writer) error {
		return export.WriteWorkbook(buf, snap)
	})
}

func handleExportCSV(w http.ResponseWriter, r *http.Request, snap *snapshot.Snapshot) {
	variant, err := export.ParseVariant(r.URL.Query().Get("variant"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := "questions.csv"
	if variant == export.VariantFull {
		name = "questions_full.csv"
	}
	writeAttachment(w, snap.ID, "text/csv; charset=utf-8", name, func(buf io.Writer) error {
		return export.WriteCSV(buf, snap.Questions, variant)
	})
}

// writeAttachment renders the whole file before sending any header, so a
// failed render becomes a 500 instead of a truncated download.
func writeAttachment(w http.ResponseWriter, snapshotID, contentType, filename string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		slog.Error("export failed", "snapshot_id", snapshotID, "file", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snaps.Reload(r.Context())
	if err != nil {
		slog.Error("reload failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap.Summary())
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	var initial *Message
	if snap, err := s.snaps.Current(); err == nil {
		sum := snap.Summary()
		initial = &Message{Type: MessageSnapshot, Snapshot: &sum}
	} else if !errors.Is(err, snapshot.ErrNoSnapshot) {
		slog.Warn("reading current snapshot", "error", err)
	}

	s.hub.serve(r.Context(), conn, initial)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
