package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/config"
	"github.com/siepic/ebeam-cdc/internal/db"
	"github.com/siepic/ebeam-cdc/internal/sweep"
)

// smallConfig keeps each simulation to a few milliseconds.
const smallConfig = `{
	"grating": {"number_of_periods": 100, "accuracy": false},
	"simulation": {"points": 21, "start_nm": 1530, "stop_nm": 1570, "segments": 20}
}`

func newTestServer(t *testing.T, withDB bool) (*Server, *httptest.Server) {
	t.Helper()
	var database *db.DB
	if withDB {
		database = cloneAPITestDB(t)
	}
	s := NewServer(config.DefaultSimConfig(), database, nil)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/version", "")
	var v map[string]string
	decode(t, resp, &v)
	assert.Contains(t, v, "version")

	resp = do(t, http.MethodPost, ts.URL+"/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSimulate(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := do(t, http.MethodPost, ts.URL+"/api/simulate", smallConfig)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Name     string       `json:"name"`
		RunID    string       `json:"run_id"`
		Metrics  *cmt.Metrics `json:"metrics"`
		Segments int          `json:"segments"`
		Spectrum spectrumJSON `json:"spectrum"`
	}
	decode(t, resp, &out)
	assert.NotEmpty(t, out.Name)
	assert.Empty(t, out.RunID)
	assert.Equal(t, 20, out.Segments)
	require.Len(t, out.Spectrum.WavelengthNM, 21)
	assert.InDelta(t, 1530, out.Spectrum.WavelengthNM[0], 1e-6)
	assert.InDelta(t, 1570, out.Spectrum.WavelengthNM[20], 1e-6)
	require.NotNil(t, out.Metrics)
	assert.GreaterOrEqual(t, out.Metrics.PeakWavelength, 1530e-9)
}

func TestSimulate_TimeoutReturnsPartial(t *testing.T) {
	_, ts := newTestServer(t, true)

	body := `{
	"grating": {"number_of_periods": 100, "accuracy": false},
	"simulation": {"points": 2001, "segments": 20, "timeout": "1ns"}
}`
	resp := do(t, http.MethodPost, ts.URL+"/api/simulate?record=true", body)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var out struct {
		RunID    string       `json:"run_id"`
		Partial  bool         `json:"partial"`
		Error    string       `json:"error"`
		Spectrum spectrumJSON `json:"spectrum"`
	}
	decode(t, resp, &out)
	assert.True(t, out.Partial)
	assert.Contains(t, out.Error, "cancelled")
	assert.Empty(t, out.RunID, "stopped runs are not recorded")
	require.Len(t, out.Spectrum.WavelengthNM, 2001)
	assert.Contains(t, out.Spectrum.DropDB, (*float64)(nil))
}

func TestSimulate_BadRequests(t *testing.T) {
	_, ts := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		url  string
		want int
	}{
		{"bad json", `{"grating":`, "/api/simulate", http.StatusBadRequest},
		{"unknown field", `{"colour": 1}`, "/api/simulate", http.StatusBadRequest},
		{"bad geometry", `{"grating": {"gap": -1}}`, "/api/simulate", http.StatusBadRequest},
		{"bad grid", `{"simulation": {"points": 0}}`, "/api/simulate", http.StatusBadRequest},
		{"record without db", smallConfig, "/api/simulate?record=true", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodPost, ts.URL+tt.url, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			var e map[string]string
			decode(t, resp, &e)
			assert.NotEmpty(t, e["error"])
		})
	}
}

func TestLayout(t *testing.T) {
	_, ts := newTestServer(t, false)

	resp := do(t, http.MethodPost, ts.URL+"/api/layout", `{"grating": {"number_of_periods": 40}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hash := resp.Header.Get("X-Layout-Hash")
	assert.Len(t, hash, 64)
	var doc struct {
		Hash   string            `json:"hash"`
		Shapes []json.RawMessage `json:"shapes"`
	}
	decode(t, resp, &doc)
	assert.Equal(t, hash, doc.Hash)
	assert.NotEmpty(t, doc.Shapes)

	resp = do(t, http.MethodPost, ts.URL+"/api/layout?format=svg", `{"grating": {"number_of_periods": 40}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<svg")
	assert.Equal(t, hash, resp.Header.Get("X-Layout-Hash"))

	resp = do(t, http.MethodPost, ts.URL+"/api/layout?format=text", `{"grating": {"number_of_periods": 40}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(body, []byte("box ")) || bytes.HasPrefix(body, []byte("polygon ")), string(body[:20]))

	resp = do(t, http.MethodPost, ts.URL+"/api/layout?format=gds", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/layout", `{"layout": {"kind": "spiral"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRuns(t *testing.T) {
	_, ts := newTestServer(t, true)

	resp := do(t, http.MethodPost, ts.URL+"/api/simulate?record=true", smallConfig)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sim struct {
		RunID string `json:"run_id"`
	}
	decode(t, resp, &sim)
	require.NotEmpty(t, sim.RunID)
	runURL := ts.URL + "/api/runs/" + sim.RunID

	resp = do(t, http.MethodGet, ts.URL+"/api/runs", "")
	var runs []db.Run
	decode(t, resp, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, sim.RunID, runs[0].ID)

	resp = do(t, http.MethodGet, runURL, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run db.Run
	decode(t, resp, &run)
	assert.Equal(t, 100, run.Case.Spec.NumberOfPeriods)

	resp = do(t, http.MethodGet, runURL+"/spectrum", "")
	var spec spectrumJSON
	decode(t, resp, &spec)
	assert.Len(t, spec.WavelengthNM, 21)

	resp = do(t, http.MethodGet, runURL+"/spectrum?format=csv", "")
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "wavelength_nm,through_db,drop_db\n"))

	resp = do(t, http.MethodGet, runURL+"/chart", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp = do(t, http.MethodGet, runURL+"/chart?format=png", "")
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = do(t, http.MethodDelete, runURL, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, runURL, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodDelete, runURL, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRuns_NoDatabase(t *testing.T) {
	_, ts := newTestServer(t, false)
	resp := do(t, http.MethodGet, ts.URL+"/api/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSweeps(t *testing.T) {
	s, ts := newTestServer(t, false)
	s.Runner().SetSimulate(func(ctx context.Context, c sweep.Case) (*cmt.Result, error) {
		return &cmt.Result{
			Wavelengths: []float64{1549e-9, 1550e-9, 1551e-9},
			Through:     []complex128{1, 0.5, 1},
			Drop:        []complex128{0.1, 0.8, 0.1},
		}, nil
	})

	resp := do(t, http.MethodPost, ts.URL+"/api/sweeps", `{"params": [{"name": "gap", "values": [0.1, 0.2]}]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started map[string]string
	decode(t, resp, &started)
	require.NotEmpty(t, started["id"])

	s.Runner().Wait()
	resp = do(t, http.MethodGet, ts.URL+"/api/sweeps/state", "")
	var state struct {
		ID      string                `json:"id"`
		Status  sweep.Status          `json:"status"`
		Results []sweep.ComboResult   `json:"results"`
		Summary map[string]sweep.Stat `json:"summary"`
	}
	decode(t, resp, &state)
	assert.Equal(t, started["id"], state.ID)
	assert.Equal(t, sweep.StatusComplete, state.Status)
	assert.Len(t, state.Results, 2)
	assert.Contains(t, state.Summary, sweep.MetricPeakWavelength)

	resp = do(t, http.MethodPost, ts.URL+"/api/sweeps", `{"params": [{"name": "colour", "values": [1]}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/sweeps", `{"params": [{"name": "gap", "values": [1]}], "record": true}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSweeps_ConflictAndStop(t *testing.T) {
	s, ts := newTestServer(t, false)
	started := make(chan struct{}, 4)
	s.Runner().SetSimulate(func(ctx context.Context, c sweep.Case) (*cmt.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, cmt.ErrCancelled
	})

	resp := do(t, http.MethodPost, ts.URL+"/api/sweeps", `{"params": [{"name": "gap", "values": [0.1, 0.2]}]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep never started")
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/sweeps", `{"params": [{"name": "gap", "values": [0.1]}]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/sweeps/stop", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sweep.StatusError, s.Runner().Wait().Status)
}

func TestHandler_AccessLogAndDebug(t *testing.T) {
	database := cloneAPITestDB(t)
	s := NewServer(config.DefaultSimConfig(), database, nil)
	var logBuf bytes.Buffer
	h := s.Handler(&logBuf)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logBuf.String(), "GET /health")

	req := httptest.NewRequest(http.MethodGet, "/debug/", nil)
	req.RemoteAddr = "127.0.0.1:1234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
