// Package http exposes case runs and shutdown margin analyses over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/corefollow"
	"github.com/aretw0/corefollow/internal/logging"
	"github.com/aretw0/corefollow/pkg/config"
	"github.com/aretw0/corefollow/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server builds a fresh core from Case for every request, so requests never share
// an engine.
type Server struct {
	Case     *config.Case
	Options  []corefollow.Option
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// RunRequest overrides parts of the case for one run. Operation replaces the case
// operation; Option is merged field by field onto the case option.
type RunRequest struct {
	Operation *config.Operation `json:"operation,omitempty"`
	Option    json.RawMessage   `json:"option,omitempty"`
}

// RunResponse carries every step result. Error is set when the run stopped early;
// Results then holds the steps completed before the failure.
type RunResponse struct {
	ID        string           `json:"id"`
	Case      string           `json:"case"`
	Operation string           `json:"operation"`
	Results   []*domain.Result `json:"results"`
	Error     string           `json:"error,omitempty"`
}

// SDMRequest overrides the analysis settings of the case.
type SDMRequest struct {
	SDM *config.SDM `json:"sdm,omitempty"`
}

// SDMResponse carries the margin breakdown.
type SDMResponse struct {
	ID     string            `json:"id"`
	Case   string            `json:"case"`
	Result *domain.SDMResult `json:"result"`
}

// NewHandler creates the router.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	if s.Gatherer == nil {
		s.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/scenarios", s.scenarios)
	r.Post("/runs", s.run)
	r.Post("/sdm", s.sdm)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "case": s.Case.Name})
}

func (s *Server) scenarios(w http.ResponseWriter, r *http.Request) {
	lib, err := corefollow.OpenLibrary(s.Case)
	if err != nil {
		s.fail(w, r, "scenarios", err)
		return
	}
	names, err := lib.List(r.Context())
	if err != nil {
		s.fail(w, r, "scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if !decode(w, r, &body) {
		return
	}
	c := *s.Case
	if body.Operation != nil {
		c.Operation = *body.Operation
	}
	c.Option = s.Case.Option.Clone()
	if len(body.Option) > 0 {
		if err := json.Unmarshal(body.Option, &c.Option); err != nil {
			s.fail(w, r, "run", fmt.Errorf("%w: option: %w", domain.ErrConfiguration, err))
			return
		}
	}
	if err := c.Validate(); err != nil {
		s.fail(w, r, "run", err)
		return
	}

	id := uuid.NewString()
	core, err := corefollow.New(r.Context(), &c, s.options(id)...)
	if err != nil {
		s.fail(w, r, "run", err)
		return
	}
	defer core.Close()

	results, err := core.Run(r.Context(), nil)
	resp := RunResponse{ID: id, Case: c.Name, Operation: c.OperationKind(), Results: results}
	if resp.Results == nil {
		resp.Results = []*domain.Result{}
	}
	if err != nil {
		if len(results) == 0 {
			s.fail(w, r, "run", err)
			return
		}
		resp.Error = err.Error()
		s.Logger.Warn("run stopped early", "run", id, "steps", len(results), "err", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) sdm(w http.ResponseWriter, r *http.Request) {
	var body SDMRequest
	if !decode(w, r, &body) {
		return
	}
	c := *s.Case
	if body.SDM != nil {
		c.SDM = *body.SDM
	}

	id := uuid.NewString()
	core, err := corefollow.New(r.Context(), &c, s.options(id)...)
	if err != nil {
		s.fail(w, r, "sdm", err)
		return
	}
	defer core.Close()

	res, err := core.SDM(r.Context())
	if err != nil {
		s.fail(w, r, "sdm", err)
		return
	}
	writeJSON(w, http.StatusOK, SDMResponse{ID: id, Case: c.Name, Result: res})
}

func (s *Server) options(id string) []corefollow.Option {
	opts := append([]corefollow.Option(nil), s.Options...)
	return append(opts, corefollow.WithLogger(s.Logger.With("run", id)))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNumerical):
		status = http.StatusUnprocessableEntity
	}
	s.Logger.Error(op+" failed", "status", status, "request", middleware.GetReqID(r.Context()), "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decode reads an optional JSON body. An empty body keeps the zero request.
func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
