// Package server exposes the skill dispatcher over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	forest "github.com/eforest-finance/forest-agent-kit"
	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/netutil"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// TraceHeader carries the trace id in both directions.
const TraceHeader = "X-Trace-Id"

// DefaultMaxRequestSize bounds request bodies.
const DefaultMaxRequestSize int64 = 1 << 20

// Server serves skill calls.
type Server struct {
	dispatcher     *forest.Dispatcher
	logger         *slog.Logger
	allowedOrigins []string
	maxRequestSize int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithMaxRequestSize sets the request body limit.
func WithMaxRequestSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxRequestSize = n
		}
	}
}

// New creates a Server for d.
func New(d *forest.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher:     d,
		logger:         slog.Default(),
		allowedOrigins: []string{"*"},
		maxRequestSize: DefaultMaxRequestSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", TraceHeader},
		ExposedHeaders: []string{TraceHeader},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.healthCheck)
		r.Get("/skills", s.listSkills)
		r.Get("/skills/{name}", s.getSkill)
		r.Post("/skills/{name}", s.dispatch)
	})

	return r
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"skills": len(s.dispatcher.Skills().Names()),
	})
}

func (s *Server) listSkills(w http.ResponseWriter, r *http.Request) {
	reg := s.dispatcher.Skills()
	defs := reg.List()
	if tier := r.URL.Query().Get("tier"); tier != "" {
		t, err := skills.ParseTier(tier)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		defs = reg.ListByTier(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": defs})
}

func (s *Server) getSkill(w http.ResponseWriter, r *http.Request) {
	def, ok := s.dispatcher.Skills().Get(chi.URLParam(r, "name"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "skill not found"})
		return
	}
	in, _ := s.dispatcher.Schemas().GetSchema(def.In)
	out, _ := s.dispatcher.Schemas().GetSchema(def.Out)
	writeJSON(w, http.StatusOK, map[string]any{
		"skill":        def,
		"inputSchema":  json.RawMessage(in),
		"outputSchema": json.RawMessage(out),
	})
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	traceID := r.Header.Get(TraceHeader)
	if traceID == "" {
		traceID = uuid.NewString()
	}

	input, err := s.readInput(r)
	if err != nil {
		status := http.StatusBadRequest
		if netutil.IsSizeLimitExceededError(err) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeEnvelope(w, status, envelope.Failure(envelope.CodeInvalidParams, err.Error(),
			envelope.WithTraceID(traceID)))
		return
	}
	// A traceId in the body, valid or not, is left for validation.
	if obj, ok := input.(map[string]any); ok {
		if _, present := obj["traceId"]; !present {
			obj["traceId"] = traceID
		}
	}

	start := time.Now()
	res := s.dispatcher.Dispatch(r.Context(), name, input)
	s.logger.Debug("http dispatch",
		slog.String("skill", name),
		slog.String("trace_id", res.TraceID),
		slog.String("code", string(res.Code)),
		slog.Duration("duration", time.Since(start)))

	s.writeEnvelope(w, StatusFor(res), res)
}

var errInvalidBody = errors.New("request body is not valid JSON")

// readInput decodes the body. An empty body is an empty object.
func (s *Server) readInput(r *http.Request) (any, error) {
	body, err := netutil.ReadAll(r.Body, s.maxRequestSize)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var input any
	if err := dec.Decode(&input); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return input, nil
}

// StatusFor maps an envelope to an HTTP status.
func StatusFor(e envelope.Envelope) int {
	if e.Success {
		return http.StatusOK
	}
	switch e.Code {
	case envelope.CodeInvalidParams:
		return http.StatusBadRequest
	case envelope.CodeServiceDisabled, envelope.CodeMaintenance:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, e envelope.Envelope) {
	if e.TraceID != "" {
		w.Header().Set(TraceHeader, e.TraceID)
	}
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
