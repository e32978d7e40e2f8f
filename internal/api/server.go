package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/logging"
	"github.com/seglab/xliffcat/internal/mt"
	"github.com/seglab/xliffcat/internal/store"
)

// Server exposes one open document store to the editor over HTTP.
type Server struct {
	store *store.Store
	log   *logging.Logger
	addr  string
}

// New creates a new API server.
func New(s *store.Store, log *logging.Logger, addr string) *Server {
	return &Server{store: s, log: log, addr: addr}
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	s.log.Info("starting server", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /segments", s.listSegments)
	mux.HandleFunc("POST /segments/save", s.saveSegment)
	mux.HandleFunc("GET /matches", s.getMatches)
	mux.HandleFunc("POST /segments/mt", s.machineTranslate)
	mux.HandleFunc("POST /segments/tm", s.tmTranslate)

	mux.HandleFunc("GET /status", s.status)
	mux.HandleFunc("POST /export", s.export)
	mux.HandleFunc("POST /export/translations", s.exportTranslations)

	mux.HandleFunc("GET /health", s.health)

	return withCORS(mux)
}

// withCORS adds CORS headers for frontend development.
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listSegments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := intParam(q.Get("start"), 0)
	count := intParam(q.Get("count"), 200)
	var files []string
	if f := q.Get("files"); f != "" {
		files = strings.Split(f, ",")
	}
	filter := domain.Filter{
		Text:          q.Get("filterText"),
		Language:      q.Get("filterLanguage"),
		CaseSensitive: q.Get("caseSensitive") == "true",
		Untranslated:  q.Get("untranslated") == "true",
		Regexp:        q.Get("regExp") == "true",
	}

	segments, err := s.store.GetSegments(files, start, count, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segments": segments,
		"start":    start,
		"count":    count,
	})
}

// SaveRequest is the request body for saving a segment's translation.
type SaveRequest struct {
	File        string `json:"file"`
	Unit        string `json:"unit"`
	Segment     string `json:"segment"`
	Translation string `json:"translation"`
	Confirm     bool   `json:"confirm"`
	Memory      string `json:"memory"`
}

func (s *Server) saveSegment(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.File == "" || req.Unit == "" || req.Segment == "" {
		writeError(w, http.StatusBadRequest, "file, unit and segment are required")
		return
	}
	if req.Memory == "" {
		req.Memory = domain.None
	}
	requestID := uuid.New().String()
	s.log.Info("save segment", "request", requestID,
		"file", req.File, "unit", req.Unit, "segment", req.Segment, "confirm", req.Confirm)

	propagated, err := s.store.SaveSegment(req.File, req.Unit, req.Segment,
		req.Translation, req.Confirm, req.Memory)
	if err != nil {
		s.log.Error("save segment", "request", requestID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"propagated": propagated,
	})
}

func (s *Server) getMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	file, unit, seg := q.Get("file"), q.Get("unit"), q.Get("segment")
	if file == "" || unit == "" || seg == "" {
		writeError(w, http.StatusBadRequest, "file, unit and segment are required")
		return
	}
	matches, err := s.store.GetTaggedMatches(file, unit, seg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

// TranslateRequest asks for alternatives for one segment.
type TranslateRequest struct {
	File    string `json:"file"`
	Unit    string `json:"unit"`
	Segment string `json:"segment"`
	Memory  string `json:"memory,omitempty"`
}

func (s *Server) machineTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	provider := mt.NewMyMemory(s.store.SrcLang(), s.store.TgtLang())
	matches, err := s.store.MachineTranslate(req.File, req.Unit, req.Segment, provider)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) tmTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Memory == "" {
		writeError(w, http.StatusBadRequest, "memory is required")
		return
	}
	matches, err := s.store.TMTranslate(req.File, req.Unit, req.Segment, req.Memory)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	status, err := s.store.TranslationStatus()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ExportRequest names the output artifact.
type ExportRequest struct {
	Output string `json:"output"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Output == "" {
		writeError(w, http.StatusBadRequest, "output is required")
		return
	}
	if err := s.store.ExportXliff(req.Output); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": req.Output})
}

func (s *Server) exportTranslations(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Output == "" {
		writeError(w, http.StatusBadRequest, "output is required")
		return
	}
	if err := s.store.ExportTranslations(req.Output); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": req.Output})
}

func intParam(s string, dflt int) int {
	if s == "" {
		return dflt
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return dflt
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
