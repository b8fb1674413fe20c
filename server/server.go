package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/document"
	"github.com/hupe1980/interviewmesh/interview"
	"github.com/hupe1980/interviewmesh/logging"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
)

const maxUploadBytes = 10 << 20

// Options configure a Server.
type Options struct {
	// Memory enables the opt-in semantic store for all sessions served.
	Memory *memory.Store

	Duration      time.Duration
	MaxQuestions  int
	WatchInterval time.Duration

	// AllowedOrigins restricts WebSocket upgrades. Empty allows any origin.
	AllowedOrigins []string

	Logger logging.Logger
}

// Server serves the JSON API and the per-session WebSocket endpoint.
type Server struct {
	gen       model.Generator
	store     core.SessionStore
	mem       *memory.Store
	extractor *document.Extractor
	registry  *Registry
	logger    logging.Logger

	duration      time.Duration
	maxQuestions  int
	watchInterval time.Duration

	upgrader websocket.Upgrader
}

// New wires a server around the generator and session store.
func New(gen model.Generator, store core.SessionStore, optFns ...func(o *Options)) *Server {
	opts := Options{
		Duration:      interview.DefaultDuration,
		MaxQuestions:  interview.DefaultMaxQuestions,
		WatchInterval: interview.DefaultWatchInterval,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		gen:           gen,
		store:         store,
		mem:           opts.Memory,
		extractor:     document.NewExtractor(),
		registry:      NewRegistry(),
		logger:        logging.OrNoOp(opts.Logger),
		duration:      opts.Duration,
		maxQuestions:  opts.MaxQuestions,
		watchInterval: opts.WatchInterval,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(opts.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}

// Handler returns the HTTP routing for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions", s.handleListSessions)
	mux.HandleFunc("GET /api/sessions/{session_id}", s.handleGetSession)
	mux.HandleFunc("POST /api/sessions/{session_id}/memory-opt-in", s.handleMemoryOptIn)
	mux.HandleFunc("POST /api/documents/extract", s.handleExtractDocument)
	mux.HandleFunc("GET /ws/{session_id}", s.handleWebSocket)
	return mux
}

type createSessionRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
	Role           string `json:"role"`
	MemoryOptIn    bool   `json:"memory_opt_in"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := core.NewSession(core.NewID())
	sess.ResumeText = req.ResumeText
	sess.JobDescription = req.JobDescription
	sess.Role = req.Role
	sess.MemoryOptIn = req.MemoryOptIn

	if err := s.store.Create(sess); err != nil {
		s.logger.Error("server.session.create_failed", "error", err)
		httpError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	s.logger.Info("server.session.created", "session_id", sess.ID, "memory_opt_in", sess.MemoryOptIn)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	completedOnly := r.URL.Query().Get("completed") == "true"

	summaries, err := s.store.PastSessions(limit, completedOnly)
	if err != nil {
		s.logger.Error("server.session.list_failed", "error", err)
		httpError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// handleGetSession returns the full session record, including the final
// report once the interview has completed. This is how a client retrieves
// the report after its WebSocket connection is gone.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	sess, err := s.store.Get(sessionID)
	if errors.Is(err, core.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("server.session.get_failed", "session_id", sessionID, "error", err)
		httpError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type memoryOptInRequest struct {
	OptIn bool `json:"opt_in"`
}

// handleMemoryOptIn toggles the memory consent flag after creation. Opting
// out also removes any vectors already stored for the session.
func (s *Server) handleMemoryOptIn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	var req memoryOptInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.store.UpdateMemoryOptIn(sessionID, req.OptIn)
	if errors.Is(err, core.ErrSessionNotFound) {
		httpError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.logger.Error("server.session.opt_in_failed", "session_id", sessionID, "error", err)
		httpError(w, http.StatusInternalServerError, "could not update session")
		return
	}

	if !req.OptIn && s.mem != nil {
		if err := s.mem.DeleteSession(r.Context(), sessionID); err != nil {
			s.logger.Error("server.memory.delete_failed", "session_id", sessionID, "error", err)
			httpError(w, http.StatusInternalServerError, "could not remove stored memory")
			return
		}
	}

	s.logger.Info("server.session.opt_in_updated", "session_id", sessionID, "memory_opt_in", req.OptIn)
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "memory_opt_in": req.OptIn})
}

func (s *Server) handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		httpError(w, http.StatusInternalServerError, "could not read upload")
		return
	}

	text, err := s.extractor.Extract(header.Filename, data)
	if errors.Is(err, document.ErrUnsupportedFormat) {
		httpError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("server.document.extract_failed", "filename", header.Filename, "error", err)
		httpError(w, http.StatusUnprocessableEntity, "could not extract text")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
