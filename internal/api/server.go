// Package api serves the simulation, layout, run history and sweep
// endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/db"
	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/httputil"
	"github.com/siepic/ebeam-cdc/internal/layout"
	"github.com/siepic/ebeam-cdc/internal/sweep"
	"github.com/siepic/ebeam-cdc/internal/version"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type Server struct {
	cfg    *config.SimConfig
	db     *db.DB
	runner *sweep.Runner
	layers layout.LayerMap
}

// NewServer creates a server whose requests override cfg. database may be
// nil, in which case the run history endpoints answer 503.
func NewServer(cfg *config.SimConfig, database *db.DB, layers layout.LayerMap) *Server {
	if layers == nil {
		layers = layout.DefaultLayerMap()
	}
	var rec sweep.Recorder
	if database != nil {
		rec = database
	}
	return &Server{
		cfg:    cfg,
		db:     database,
		runner: sweep.NewRunner(cfg.Case(), rec),
		layers: layers,
	}
}

// Runner exposes the sweep runner, mainly for tests.
func (s *Server) Runner() *sweep.Runner { return s.runner }

// Router returns the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost)
	api.HandleFunc("/layout", s.handleLayout).Methods(http.MethodPost)

	api.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", s.handleDeleteRun).Methods(http.MethodDelete)
	api.HandleFunc("/runs/{id}/spectrum", s.handleRunSpectrum).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/chart", s.handleRunChart).Methods(http.MethodGet)

	api.HandleFunc("/sweeps", s.handleStartSweep).Methods(http.MethodPost)
	api.HandleFunc("/sweeps/state", s.handleSweepState).Methods(http.MethodGet)
	api.HandleFunc("/sweeps/stop", s.handleStopSweep).Methods(http.MethodPost)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.MethodNotAllowed(w)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httputil.NotFound(w, "not found")
	})
	return r
}

// Handler mounts the API and, when a database is attached, the /debug/
// admin routes, behind an access log written to out.
func (s *Server) Handler(out io.Writer) http.Handler {
	mux := http.NewServeMux()
	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}
	mux.Handle("/", s.Router())
	return handlers.LoggingHandler(out, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"version":    version.Version,
		"git_sha":    version.GitSHA,
		"build_time": version.BuildTime,
	})
}

// decodeConfig overlays the request body onto a copy of the server
// configuration. An empty body yields the server configuration.
func (s *Server) decodeConfig(r *http.Request) (*config.SimConfig, error) {
	cfg := s.cfg.Clone()
	if err := decodeBody(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return cfg, nil
}

var errBadRequest = errors.New("bad request")

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, grating.ErrInvalidGeometry),
		errors.Is(err, cmt.ErrInvalidDispersion),
		errors.Is(err, layout.ErrInvalidOptions),
		errors.Is(err, sweep.ErrUnknownParam):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, db.ErrNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, sweep.ErrInProgress):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, errNoDatabase), errors.Is(err, cmt.ErrCancelled):
		httputil.ServiceUnavailable(w, err.Error())
	default:
		log.Printf("api: %v", err)
		httputil.InternalServerError(w, err.Error())
	}
}
