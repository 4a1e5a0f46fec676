package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/monitoring"
)

var logf = monitoring.Prefixed("sweep")

// ErrInProgress is returned by Start while another sweep is running.
var ErrInProgress = errors.New("sweep already in progress")

// Status represents the current state of a sweep run
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Request defines the parameters for starting a sweep
type Request struct {
	Params []Param `json:"params"`
	// Base replaces the runner's base case when set.
	Base *Case `json:"base,omitempty"`
	// Record persists every simulated combination through the runner's
	// Recorder.
	Record bool `json:"record,omitempty"`
}

// ComboResult holds the outcome of one parameter combination
type ComboResult struct {
	Values  map[string]float64 `json:"values"`
	Metrics cmt.Metrics        `json:"metrics"`
	Failed  int                `json:"failed"`
	RunID   string             `json:"run_id,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// Summary metrics keys.
const (
	MetricPeakWavelength = "peak_wavelength_nm"
	MetricPeakDropDB     = "peak_drop_db"
	MetricBandwidth      = "bandwidth_3db_nm"
	MetricSidelobe       = "sidelobe_suppression_db"
)

// State holds the current state and results of a sweep
type State struct {
	ID              string          `json:"id,omitempty"`
	Status          Status          `json:"status"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Params          []string        `json:"params,omitempty"`
	TotalCombos     int             `json:"total_combos"`
	CompletedCombos int             `json:"completed_combos"`
	Results         []ComboResult   `json:"results"`
	Summary         map[string]Stat `json:"summary,omitempty"`
	Error           string          `json:"error,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// Recorder persists a simulated case and returns its run ID.
type Recorder interface {
	RecordRun(ctx context.Context, c Case, res *cmt.Result, m cmt.Metrics) (string, error)
}

// SweepRecorder is implemented by recorders that tag runs with the sweep
// that produced them.
type SweepRecorder interface {
	RecordSweepRun(ctx context.Context, sweepID string, c Case, res *cmt.Result, m cmt.Metrics) (string, error)
}

// SimulateFunc runs one case. The default is cmt.Simulate.
type SimulateFunc func(ctx context.Context, c Case) (*cmt.Result, error)

func simulateCase(ctx context.Context, c Case) (*cmt.Result, error) {
	return cmt.Simulate(ctx, c.Spec, c.Dispersion, c.Coupling, c.Setup)
}

// Runner orchestrates parameter sweeps. One sweep runs at a time.
type Runner struct {
	base     Case
	recorder Recorder
	simulate SimulateFunc
	now      func() time.Time

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner sweeping around base. rec may be nil.
func NewRunner(base Case, rec Recorder) *Runner {
	return &Runner{
		base:     base,
		recorder: rec,
		simulate: simulateCase,
		now:      time.Now,
		state:    State{Status: StatusIdle},
	}
}

// SetSimulate replaces the per-combination simulation, mainly for tests.
func (r *Runner) SetSimulate(f SimulateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.simulate = f
}

func (r *Runner) addWarning(msg string) {
	r.mu.Lock()
	r.state.Warnings = append(r.state.Warnings, msg)
	r.mu.Unlock()
}

// State returns a copy of the current sweep state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	state.Results = append([]ComboResult(nil), r.state.Results...)
	state.Warnings = append([]string(nil), r.state.Warnings...)
	return state
}

// Start validates req and begins the sweep in the background. It returns
// the sweep ID.
func (r *Runner) Start(ctx context.Context, req Request) (string, error) {
	combos, err := Combinations(req.Params)
	if err != nil {
		return "", err
	}
	names := make([]string, len(req.Params))
	for i, p := range req.Params {
		names[i] = p.Name
	}
	base := r.base
	if req.Base != nil {
		base = *req.Base
	}

	r.mu.Lock()
	if r.state.Status == StatusRunning {
		r.mu.Unlock()
		return "", ErrInProgress
	}
	now := r.now()
	id := uuid.NewString()
	r.state = State{
		ID:          id,
		Status:      StatusRunning,
		StartedAt:   &now,
		Params:      names,
		TotalCombos: len(combos),
		Results:     make([]ComboResult, 0, len(combos)),
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	done := make(chan struct{})
	r.done = done
	simulate := r.simulate
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		r.run(sweepCtx, id, req, base, combos, simulate)
	}()
	return id, nil
}

// Run starts a sweep and waits for it to finish.
func (r *Runner) Run(ctx context.Context, req Request) (State, error) {
	if _, err := r.Start(ctx, req); err != nil {
		return State{}, err
	}
	state := r.Wait()
	if state.Status == StatusError {
		return state, errors.New(state.Error)
	}
	return state, nil
}

// Wait blocks until the current sweep, if any, has finished.
func (r *Runner) Wait() State {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done != nil {
		<-done
	}
	return r.State()
}

// Stop cancels a running sweep
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Runner) stopped(comboNum, total int, err error) {
	r.mu.Lock()
	r.state.Status = StatusError
	r.state.Error = fmt.Sprintf("sweep stopped at combination %d/%d: %v", comboNum+1, total, err)
	now := r.now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
}

func (r *Runner) run(ctx context.Context, id string, req Request, base Case, combos []Combo, simulate SimulateFunc) {
	total := len(combos)
	for comboNum, combo := range combos {
		// Check for cancellation
		select {
		case <-ctx.Done():
			r.stopped(comboNum, total, ctx.Err())
			return
		default:
		}

		values := make(map[string]float64, len(req.Params))
		for i, p := range req.Params {
			values[p.Name] = combo[i]
		}
		logf("Combination %d/%d: %v", comboNum+1, total, values)

		c := combo.Apply(base, req.Params)
		result := ComboResult{Values: values}
		res, err := simulate(ctx, c)
		switch {
		case errors.Is(err, cmt.ErrCancelled):
			r.stopped(comboNum, total, err)
			return
		case err != nil:
			logf("ERROR: combination %d: %v", comboNum+1, err)
			r.addWarning(fmt.Sprintf("combo %d: simulation failed (skipped): %v", comboNum+1, err))
			result.Error = err.Error()
		default:
			result.Failed = res.Failed
			m, aerr := cmt.Analyze(res)
			if aerr != nil {
				result.Error = aerr.Error()
				r.addWarning(fmt.Sprintf("combo %d: %v", comboNum+1, aerr))
			}
			result.Metrics = m
			if req.Record && r.recorder != nil {
				runID, rerr := r.record(ctx, id, c, res, m)
				if rerr != nil {
					r.addWarning(fmt.Sprintf("combo %d: failed to record run: %v", comboNum+1, rerr))
				}
				result.RunID = runID
			}
		}

		r.mu.Lock()
		r.state.Results = append(r.state.Results, result)
		r.state.CompletedCombos = comboNum + 1
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.state.Status = StatusComplete
	r.state.Summary = summarize(r.state.Results)
	now := r.now()
	r.state.CompletedAt = &now
	r.mu.Unlock()
	logf("Sweep complete: %d combinations evaluated", total)
}

func (r *Runner) record(ctx context.Context, sweepID string, c Case, res *cmt.Result, m cmt.Metrics) (string, error) {
	if sr, ok := r.recorder.(SweepRecorder); ok {
		return sr.RecordSweepRun(ctx, sweepID, c, res, m)
	}
	return r.recorder.RecordRun(ctx, c, res, m)
}

// summarize computes the per-metric statistics of the successful combos.
func summarize(results []ComboResult) map[string]Stat {
	series := map[string][]float64{}
	for _, res := range results {
		if res.Error != "" {
			continue
		}
		m := res.Metrics
		series[MetricPeakWavelength] = append(series[MetricPeakWavelength], m.PeakWavelength*1e9)
		series[MetricPeakDropDB] = append(series[MetricPeakDropDB], m.PeakDropDB)
		series[MetricBandwidth] = append(series[MetricBandwidth], m.Bandwidth3dB*1e9)
		series[MetricSidelobe] = append(series[MetricSidelobe], m.SidelobeSuppressionDB)
	}
	out := make(map[string]Stat, len(series))
	for k, v := range series {
		out[k] = Summarize(v)
	}
	return out
}
