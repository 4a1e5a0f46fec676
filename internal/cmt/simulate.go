package cmt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/monitoring"
)

// FastSegments caps the segmentation when Spec.Accuracy is off.
const FastSegments = 100

var logf = monitoring.Prefixed("cmt")

// Result is the spectrum of one simulation. Slices are indexed like
// Wavelengths. Points that failed hold NaN fields and matrices.
type Result struct {
	Wavelengths []float64
	Through     []complex128
	Drop        []complex128
	P           []Matrix4
	H           []Matrix4
	TopDown     []Matrix4

	// Completed marks wavelengths that were attempted before the run
	// ended. It is only partially set after cancellation, and the
	// remaining points hold NaN.
	Completed   []bool
	Diagnostics []PointError
	// Failed counts wavelengths whose spectra are NaN. Top-down failures
	// leave the spectra intact and are not counted.
	Failed   int
	Segments int
}

// SegmentsFor returns the segmentation used for s under setup.
func SegmentsFor(s grating.Spec, setup Setup) int {
	switch {
	case setup.Segments > 0:
		return setup.Segments
	case s.Accuracy:
		return s.NumberOfPeriods
	default:
		return min(s.NumberOfPeriods, FastSegments)
	}
}

// ScheduleFor validates s and builds its segment schedule under setup,
// applying the default chirp policy when setup asks for chirp and s has
// none.
func ScheduleFor(s grating.Spec, setup Setup) (*grating.SegmentSchedule, error) {
	if setup.Chirp && s.Chirp.IsZero() {
		s.Chirp = grating.DefaultChirpPolicy(s.Chirp.Seed)
	}
	return grating.NewSchedule(s, SegmentsFor(s, setup))
}

// Simulate segments the grating of s and solves it over the setup grid.
func Simulate(ctx context.Context, s grating.Spec, disp Dispersion, coup Coupling, setup Setup) (*Result, error) {
	sched, err := ScheduleFor(s, setup)
	if err != nil {
		return nil, err
	}
	return SimulateSchedule(ctx, sched, disp, coup.ForSpec(s), setup)
}

// SimulateSchedule solves a prepared schedule. coup is used as is; see
// Coupling.ForSpec.
//
// Per-wavelength failures are recorded as NaN points with a PointError in
// Result.Diagnostics. In strict mode the first failure stops the run and is
// returned. When ctx is cancelled the partial result is returned together
// with an error matching ErrCancelled.
func SimulateSchedule(ctx context.Context, sched *grating.SegmentSchedule, disp Dispersion, coup Coupling, setup Setup) (*Result, error) {
	if err := disp.Validate(); err != nil {
		return nil, err
	}
	if err := coup.Validate(); err != nil {
		return nil, err
	}
	if err := setup.Validate(); err != nil {
		return nil, err
	}
	if sched == nil || len(sched.Segments) == 0 {
		return nil, fmt.Errorf("%w: empty segment schedule", grating.ErrInvalidGeometry)
	}

	lambdas := setup.Wavelengths()
	total := len(lambdas)
	res := &Result{
		Wavelengths: lambdas,
		Through:     make([]complex128, total),
		Drop:        make([]complex128, total),
		P:           make([]Matrix4, total),
		H:           make([]Matrix4, total),
		TopDown:     make([]Matrix4, total),
		Completed:   make([]bool, total),
		Segments:    len(sched.Segments),
	}

	m := newModel(sched, disp, coup, setup.DeviceTemp-setup.ChipTemp)
	modes := setup.modes()

	workers := setup.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu   sync.Mutex
		done int
	)
	record := func(perr *PointError, spectrumFailed bool) {
		mu.Lock()
		defer mu.Unlock()
		if perr != nil {
			res.Diagnostics = append(res.Diagnostics, *perr)
		}
		if spectrumFailed {
			res.Failed++
		}
	}
	tick := func() {
		if setup.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		setup.Progress(done, total)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range lambdas {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			perr := res.solvePoint(m, i, modes, setup.CrossMode)
			res.Completed[i] = true
			tick()
			if perr == nil {
				return nil
			}
			failed := perr.Stage != StageTopDown
			record(perr, failed)
			if setup.Strict && failed {
				return perr
			}
			return nil
		})
	}
	err := g.Wait()

	slices.SortFunc(res.Diagnostics, func(a, b PointError) int { return a.Index - b.Index })
	if res.Failed > 0 {
		logf("%d of %d wavelengths failed (%d segments)", res.Failed, total, res.Segments)
	}

	if err == nil && ctx.Err() != nil {
		err = &cancelledError{cause: ctx.Err()}
	}
	if err != nil {
		res.maskPending()
		return res, err
	}
	return res, nil
}

// solvePoint fills index i of r. Only index i is written, so workers need
// no locking here.
func (r *Result) solvePoint(m *model, i int, modes ModeRatios, cm CrossMode) *PointError {
	lambda := r.Wavelengths[i]
	fail := func(stage string, seg int, err error) *PointError {
		return &PointError{Index: i, Wavelength: lambda, Stage: stage, Segment: seg, Err: err}
	}

	p, seg, err := m.transfer(lambda)
	if err != nil {
		r.setNaN(i)
		return fail(StageTransfer, seg, err)
	}
	r.P[i] = p

	h, err := SwitchTop(p)
	if err != nil {
		r.setNaN(i)
		r.P[i] = p
		return fail(StageInOut, -1, err)
	}
	r.H[i] = h
	r.Through[i], r.Drop[i] = Extract(&h, modes, cm)

	td, err := TopDown(p)
	if err != nil {
		r.TopDown[i] = nanMatrix()
		return fail(StageTopDown, -1, err)
	}
	r.TopDown[i] = td
	return nil
}

// maskPending sets the points a stopped run never reached to NaN, so a
// partial result carries no zero-valued spectra.
func (r *Result) maskPending() {
	for i, ok := range r.Completed {
		if !ok {
			r.setNaN(i)
		}
	}
}

func (r *Result) setNaN(i int) {
	nan := complex(math.NaN(), math.NaN())
	r.Through[i], r.Drop[i] = nan, nan
	r.P[i], r.H[i], r.TopDown[i] = nanMatrix(), nanMatrix(), nanMatrix()
}

func nanMatrix() Matrix4 {
	nan := complex(math.NaN(), math.NaN())
	var m Matrix4
	for i := range m {
		for j := range m[i] {
			m[i][j] = nan
		}
	}
	return m
}

// ThroughPower returns |E_through|².
func (r *Result) ThroughPower() []float64 { return power(r.Through) }

// DropPower returns |E_drop|².
func (r *Result) DropPower() []float64 { return power(r.Drop) }

// ThroughDB returns the through power in dB.
func (r *Result) ThroughDB() []float64 { return toDB(r.ThroughPower()) }

// DropDB returns the drop power in dB.
func (r *Result) DropDB() []float64 { return toDB(r.DropPower()) }

// Summary describes the failure counts of the run.
func (r *Result) Summary() string {
	var overflow, singular, other, topDown int
	for _, d := range r.Diagnostics {
		switch {
		case d.Stage == StageTopDown:
			topDown++
		case errors.Is(d.Err, ErrNumericOverflow):
			overflow++
		case errors.Is(d.Err, ErrSingularBlock):
			singular++
		default:
			other++
		}
	}
	attempted := 0
	for _, c := range r.Completed {
		if c {
			attempted++
		}
	}
	return fmt.Sprintf("%d/%d wavelengths solved, %d failed (overflow=%d singular=%d other=%d), top-down unavailable at %d",
		attempted-r.Failed, len(r.Wavelengths), r.Failed, overflow, singular, other, topDown)
}

func power(f []complex128) []float64 {
	out := make([]float64, len(f))
	for i, v := range f {
		a := cmplx.Abs(v)
		out[i] = a * a
	}
	return out
}

func toDB(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = 10 * math.Log10(v)
	}
	return out
}
