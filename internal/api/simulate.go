package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/httputil"
)

var errNoDatabase = errors.New("no run database configured")

// spectrumJSON is a spectrum with non-finite points as null.
type spectrumJSON struct {
	WavelengthNM []float64  `json:"wavelength_nm"`
	ThroughDB    []*float64 `json:"through_db"`
	DropDB       []*float64 `json:"drop_db"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newSpectrumJSON(wavelengths, throughDB, dropDB []float64) spectrumJSON {
	out := spectrumJSON{
		WavelengthNM: make([]float64, len(wavelengths)),
		ThroughDB:    make([]*float64, len(wavelengths)),
		DropDB:       make([]*float64, len(wavelengths)),
	}
	for i, lam := range wavelengths {
		out.WavelengthNM[i] = lam * 1e9
		out.ThroughDB[i] = finiteOrNil(throughDB[i])
		out.DropDB[i] = finiteOrNil(dropDB[i])
	}
	return out
}

type simulateResponse struct {
	Name     string       `json:"name"`
	RunID    string       `json:"run_id,omitempty"`
	Metrics  *cmt.Metrics `json:"metrics,omitempty"`
	Failed   int          `json:"failed"`
	Segments int          `json:"segments"`
	Summary  string       `json:"summary"`
	Spectrum spectrumJSON `json:"spectrum"`
	Warnings []string     `json:"warnings,omitempty"`
	// Partial is set when the run stopped early. Pending points are null
	// and Error says why.
	Partial bool   `json:"partial,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleSimulate runs one simulation. The body is a partial configuration;
// ?record=true stores the run.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.decodeConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}
	record, _ := strconv.ParseBool(r.URL.Query().Get("record"))
	if record && s.db == nil {
		writeError(w, errNoDatabase)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cfg.GetTimeout())
	defer cancel()

	c := cfg.Case()
	res, err := cmt.Simulate(ctx, c.Spec, c.Dispersion, c.Coupling, c.Setup)
	partial := errors.Is(err, cmt.ErrCancelled) && res != nil
	if err != nil && !partial {
		writeError(w, err)
		return
	}

	resp := simulateResponse{
		Name:     grating.DisplayName(c.Spec),
		Failed:   res.Failed,
		Segments: res.Segments,
		Summary:  res.Summary(),
		Spectrum: newSpectrumJSON(res.Wavelengths, res.ThroughDB(), res.DropDB()),
	}
	m, err := cmt.Analyze(res)
	if err != nil {
		resp.Warnings = append(resp.Warnings, err.Error())
	} else {
		resp.Metrics = &m
	}
	if partial {
		resp.Partial = true
		resp.Error = err.Error()
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	if record {
		id, err := s.db.RecordRun(r.Context(), c, res, m)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.RunID = id
	}
	httputil.WriteJSONOK(w, resp)
}
