package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siepic/ebeam-cdc/internal/cmt"
	"github.com/siepic/ebeam-cdc/internal/monitoring"
)

func init() {
	monitoring.SetLogger(func(string, ...interface{}) {})
}

// fakeResult builds a five-point spectrum whose drop peaks at the centre
// wavelength.
func fakeResult(centre float64) *cmt.Result {
	res := &cmt.Result{}
	drop := []float64{0.01, 0.2, 0.9, 0.2, 0.01}
	for i, d := range drop {
		res.Wavelengths = append(res.Wavelengths, centre+float64(i-2)*1e-9)
		res.Drop = append(res.Drop, complex(math.Sqrt(d), 0))
		res.Through = append(res.Through, complex(math.Sqrt(1-d), 0))
		res.Completed = append(res.Completed, true)
	}
	return res
}

// periodSimulate places the peak at period·5 µm so results differ per combo.
func periodSimulate(_ context.Context, c Case) (*cmt.Result, error) {
	return fakeResult(c.Spec.GratingPeriod * 5e-6), nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	cases []Case
	err   error
}

func (f *fakeRecorder) RecordRun(_ context.Context, c Case, _ *cmt.Result, _ cmt.Metrics) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases = append(f.cases, c)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("run-%d", len(f.cases)), nil
}

func TestRunner_Run(t *testing.T) {
	rec := &fakeRecorder{}
	r := NewRunner(DefaultCase(), rec)
	r.SetSimulate(periodSimulate)

	state, err := r.Run(context.Background(), Request{
		Params: []Param{{Name: "grating_period", Values: []float64{0.31, 0.32}}},
		Record: true,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, state.Status)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, 2, state.TotalCombos)
	assert.Equal(t, 2, state.CompletedCombos)
	require.Len(t, state.Results, 2)
	assert.Equal(t, map[string]float64{"grating_period": 0.31}, state.Results[0].Values)
	assert.InDelta(t, 1550e-9, state.Results[0].Metrics.PeakWavelength, 1e-15)
	assert.InDelta(t, 1600e-9, state.Results[1].Metrics.PeakWavelength, 1e-15)
	assert.Equal(t, "run-1", state.Results[0].RunID)
	assert.Equal(t, "run-2", state.Results[1].RunID)
	assert.NotNil(t, state.CompletedAt)

	peak := state.Summary[MetricPeakWavelength]
	assert.Equal(t, 2, peak.Count)
	assert.InDelta(t, 1575, peak.Mean, 1e-6)
	assert.InDelta(t, 1550, peak.Min, 1e-6)

	require.Len(t, rec.cases, 2)
	assert.Equal(t, 0.32, rec.cases[1].Spec.GratingPeriod)
}

func TestRunner_FailedComboIsSkipped(t *testing.T) {
	r := NewRunner(DefaultCase(), nil)
	r.SetSimulate(func(ctx context.Context, c Case) (*cmt.Result, error) {
		if c.Spec.Gap > 0.15 {
			return nil, errors.New("boom")
		}
		return periodSimulate(ctx, c)
	})

	state, err := r.Run(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1, 0.2}}},
	})
	require.NoError(t, err)
	require.Len(t, state.Results, 2)
	assert.Empty(t, state.Results[0].Error)
	assert.Equal(t, "boom", state.Results[1].Error)
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "combo 2")
	assert.Equal(t, 1, state.Summary[MetricPeakDropDB].Count)
}

func TestRunner_RecorderErrorIsWarning(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	r := NewRunner(DefaultCase(), rec)
	r.SetSimulate(periodSimulate)

	state, err := r.Run(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1}}},
		Record: true,
	})
	require.NoError(t, err)
	assert.Empty(t, state.Results[0].RunID)
	require.Len(t, state.Warnings, 1)
	assert.Contains(t, state.Warnings[0], "disk full")
}

func TestRunner_Stop(t *testing.T) {
	r := NewRunner(DefaultCase(), nil)
	started := make(chan struct{}, 8)
	r.SetSimulate(func(ctx context.Context, c Case) (*cmt.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, fmt.Errorf("solver: %w", cmt.ErrCancelled)
	})

	_, err := r.Start(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1, 0.2, 0.3}}},
	})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("simulation never started")
	}

	_, err = r.Start(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1}}},
	})
	assert.ErrorIs(t, err, ErrInProgress)

	r.Stop()
	state := r.Wait()
	assert.Equal(t, StatusError, state.Status)
	assert.Contains(t, state.Error, "combination 1/3")
	assert.Empty(t, state.Results)
}

func TestRunner_StartRejectsBadParams(t *testing.T) {
	r := NewRunner(DefaultCase(), nil)
	_, err := r.Start(context.Background(), Request{
		Params: []Param{{Name: "colour", Values: []float64{1}}},
	})
	assert.ErrorIs(t, err, ErrUnknownParam)
	assert.Equal(t, StatusIdle, r.State().Status)
}

func TestRunner_BaseOverride(t *testing.T) {
	r := NewRunner(DefaultCase(), nil)
	var seen []int
	var mu sync.Mutex
	r.SetSimulate(func(ctx context.Context, c Case) (*cmt.Result, error) {
		mu.Lock()
		seen = append(seen, c.Spec.NumberOfPeriods)
		mu.Unlock()
		return periodSimulate(ctx, c)
	})
	base := DefaultCase()
	base.Spec.NumberOfPeriods = 123
	_, err := r.Run(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1}}},
		Base:   &base,
	})
	require.NoError(t, err)
	assert.Equal(t, []int{123}, seen)
}

type fakeSweepRecorder struct {
	fakeRecorder
	sweepIDs []string
}

func (f *fakeSweepRecorder) RecordSweepRun(ctx context.Context, sweepID string, c Case, res *cmt.Result, m cmt.Metrics) (string, error) {
	f.mu.Lock()
	f.sweepIDs = append(f.sweepIDs, sweepID)
	f.mu.Unlock()
	return f.RecordRun(ctx, c, res, m)
}

func TestRunner_TagsRunsWithSweepID(t *testing.T) {
	rec := &fakeSweepRecorder{}
	r := NewRunner(DefaultCase(), rec)
	r.SetSimulate(periodSimulate)

	state, err := r.Run(context.Background(), Request{
		Params: []Param{{Name: "gap", Values: []float64{0.1, 0.2}}},
		Record: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{state.ID, state.ID}, rec.sweepIDs)
}
