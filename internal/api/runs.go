package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/siepic/ebeam-cdc/internal/httputil"
	"github.com/siepic/ebeam-cdc/internal/report"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, errNoDatabase)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.db.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, errNoDatabase)
		return
	}
	run, err := s.db.GetRun(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, errNoDatabase)
		return
	}
	if err := s.db.DeleteRun(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runSpectrum(r *http.Request) (report.Spectrum, error) {
	if s.db == nil {
		return report.Spectrum{}, errNoDatabase
	}
	id := mux.Vars(r)["id"]
	run, err := s.db.GetRun(r.Context(), id)
	if err != nil {
		return report.Spectrum{}, err
	}
	sp, err := s.db.GetSpectrum(r.Context(), id)
	if err != nil {
		return report.Spectrum{}, err
	}
	return report.FromPower(run.Name, sp.Wavelengths, sp.ThroughPower, sp.DropPower), nil
}

// handleRunSpectrum returns the stored spectrum as JSON or, with
// ?format=csv, as a CSV table.
func (s *Server) handleRunSpectrum(w http.ResponseWriter, r *http.Request) {
	spec, err := s.runSpectrum(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "", "json":
		httputil.WriteJSONOK(w, newSpectrumJSON(spec.Wavelengths, spec.ThroughDB, spec.DropDB))
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf, spec); err != nil {
			writeError(w, err)
			return
		}
		httputil.WriteBody(w, "text/csv", buf.Bytes())
	default:
		httputil.BadRequest(w, "format must be json or csv")
	}
}

// handleRunChart renders the stored spectrum as an HTML chart or, with
// ?format=png, as a PNG plot.
func (s *Server) handleRunChart(w http.ResponseWriter, r *http.Request) {
	spec, err := s.runSpectrum(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var (
		buf         bytes.Buffer
		contentType string
	)
	switch r.URL.Query().Get("format") {
	case "", "html":
		err = report.RenderHTML(&buf, spec)
		contentType = "text/html; charset=utf-8"
	case "png":
		err = report.WritePNG(&buf, spec)
		contentType = "image/png"
	default:
		httputil.BadRequest(w, "format must be html or png")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteBody(w, contentType, buf.Bytes())
}
