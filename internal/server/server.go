// Package server exposes the narration service over HTTP.
//
// Routes:
//
//	POST   /api/sessions                           — start a session
//	DELETE /api/sessions/{id}                      — end a session
//	POST   /api/sessions/{id}/narrations           — run one narration
//	GET    /api/sessions/{id}/narrations           — list history, newest first
//	GET    /api/sessions/{id}/narrations/{n}/audio — download one MP3
//	GET    /api/sessions/{id}/progress             — WebSocket state feed
//	GET    /healthz, /readyz                       — probes
//	GET    /metrics                                — Prometheus scrape
//
// Narration endpoints return record metadata as JSON; audio is only served
// by the download route, as a complete file with an attachment disposition.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echoverse/echoverse/internal/health"
	"github.com/echoverse/echoverse/internal/narrate"
	"github.com/echoverse/echoverse/internal/observe"
	"github.com/echoverse/echoverse/internal/session"
	"github.com/echoverse/echoverse/pkg/provider/rewrite"
	"github.com/echoverse/echoverse/pkg/provider/speech"
	"github.com/echoverse/echoverse/pkg/types"
)

const (
	// maxJSONBody bounds the JSON request body for narration requests.
	maxJSONBody = 1 << 20 // 1 MiB

	// maxUploadBody bounds multipart text file uploads.
	maxUploadBody = 10 << 20 // 10 MiB
)

// Option is a functional option for Server.
type Option func(*Server)

// WithHealth mounts the given health handler's probe routes.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics overrides the metrics instance. Defaults to
// observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// Server wires the session manager and narration pipeline into HTTP
// handlers. Create one with New and mount Handler().
type Server struct {
	manager  *session.Manager
	pipeline *narrate.Pipeline
	hub      *progressHub
	health   *health.Handler
	metrics  *observe.Metrics
}

// New creates a Server over the given providers. The narration pipeline is
// built internally so its state transitions feed the progress WebSocket.
func New(manager *session.Manager, rewriter rewrite.Provider, speaker speech.Provider, opts ...Option) *Server {
	s := &Server{
		manager: manager,
		hub:     newProgressHub(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.pipeline = narrate.New(rewriter, speaker,
		narrate.WithObserver(s.hub.Observer()),
		narrate.WithMetrics(s.metrics),
	)
	return s
}

// Handler returns the root HTTP handler with all routes mounted, wrapped in
// the observability middleware (tracing, correlation IDs, request metrics).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleEndSession)
	mux.HandleFunc("POST /api/sessions/{id}/narrations", s.handleCreateNarration)
	mux.HandleFunc("GET /api/sessions/{id}/narrations", s.handleListNarrations)
	mux.HandleFunc("GET /api/sessions/{id}/narrations/{n}/audio", s.handleDownloadAudio)
	mux.HandleFunc("GET /api/sessions/{id}/progress", s.handleProgress)

	mux.Handle("GET /metrics", promhttp.Handler())
	if s.health != nil {
		s.health.Register(mux)
	}
	return observe.Middleware(s.metrics)(mux)
}

// sessionResponse is the JSON body returned for a created session.
type sessionResponse struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
}

// handleCreateSession handles POST /api/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.manager.Create()
	s.metrics.ActiveSessions.Add(r.Context(), 1)
	observe.Logger(r.Context()).Info("session started", "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:        sess.ID,
		StartedAt: sess.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// handleEndSession handles DELETE /api/sessions/{id}. The session's history
// is discarded with it.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.manager.End(id); err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ActiveSessions.Add(r.Context(), -1)
	observe.Logger(r.Context()).Info("session ended", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// narrationRequest is the JSON body for POST narrations.
type narrationRequest struct {
	Text   string `json:"text"`
	Tone   string `json:"tone"`
	Accent string `json:"accent"`
}

// recordView is the JSON metadata for one narration record. Audio bytes are
// not inlined; clients fetch them from the download route.
type recordView struct {
	Index         int    `json:"index"`
	OriginalText  string `json:"original_text"`
	RewrittenText string `json:"rewritten_text"`
	Tone          string `json:"tone"`
	Accent        string `json:"accent"`
	Filename      string `json:"filename"`
	AudioBytes    int    `json:"audio_bytes"`
	CreatedAt     string `json:"created_at"`
}

func viewOf(index int, rec *types.NarrationRecord) recordView {
	return recordView{
		Index:         index,
		OriginalText:  rec.OriginalText,
		RewrittenText: rec.RewrittenText,
		Tone:          string(rec.Tone),
		Accent:        string(rec.Accent),
		Filename:      rec.Filename(),
		AudioBytes:    len(rec.Audio),
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// handleCreateNarration handles POST /api/sessions/{id}/narrations. The body
// is either JSON or a multipart form with a .txt file under "file" plus
// "tone" and "accent" fields.
func (s *Server) handleCreateNarration(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	req, err := decodeNarrationRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	rec, err := s.pipeline.Run(r.Context(), sess, narrate.Request{
		Text:   req.Text,
		Tone:   types.Tone(req.Tone),
		Accent: types.Accent(req.Accent),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// The new record is always the history head.
	writeJSON(w, http.StatusCreated, viewOf(0, rec))
}

// decodeNarrationRequest extracts a narration request from either a JSON
// body or a multipart text file upload.
func decodeNarrationRequest(r *http.Request) (narrationRequest, error) {
	var req narrationRequest

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBody); err != nil {
			return req, fmt.Errorf("parse multipart form: %w", err)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			return req, fmt.Errorf(`multipart form needs a "file" part: %w`, err)
		}
		defer f.Close()
		if !strings.HasSuffix(strings.ToLower(header.Filename), ".txt") {
			return req, fmt.Errorf("uploaded file %q must be a .txt file", header.Filename)
		}
		text, err := io.ReadAll(io.LimitReader(f, maxUploadBody))
		if err != nil {
			return req, fmt.Errorf("read uploaded file: %w", err)
		}
		req.Text = string(text)
		req.Tone = r.FormValue("tone")
		req.Accent = r.FormValue("accent")
		return req, nil
	}

	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return req, fmt.Errorf("decode request body: %w", err)
	}
	return req, nil
}

// handleListNarrations handles GET /api/sessions/{id}/narrations. Records
// are returned newest first; index 0 is the most recent.
func (s *Server) handleListNarrations(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	records := sess.History.All()
	views := make([]recordView, len(records))
	for i, rec := range records {
		views[i] = viewOf(i, rec)
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDownloadAudio handles GET /api/sessions/{id}/narrations/{n}/audio.
// The response is the complete MP3 with an attachment disposition carrying
// the record's download filename.
func (s *Server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "narration index must be an integer", Kind: "bad_request"})
		return
	}
	rec, err := sess.History.At(n)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": rec.Filename()})
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Audio)
}

// handleProgress handles GET /api/sessions/{id}/progress. The connection is
// upgraded to a WebSocket and receives one JSON event per pipeline state
// transition until the client disconnects.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("progress websocket accept failed", "session_id", sess.ID, "err", err)
		return
	}

	s.hub.subscribe(sess.ID, conn)
	defer s.hub.unsubscribe(sess.ID, conn)

	// The feed is write-only; CloseRead surfaces client disconnects.
	ctx := conn.CloseRead(r.Context())
	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "")
}
