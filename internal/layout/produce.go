package layout

import (
	"errors"
	"fmt"
	"math"

	"github.com/siepic/ebeam-cdc/internal/grating"
	"github.com/siepic/ebeam-cdc/internal/monitoring"
	"github.com/siepic/ebeam-cdc/internal/units"
)

var logf = monitoring.Prefixed("layout")

const (
	// LibraryLabel identifies the compact model library on the device
	// recognition layer.
	LibraryLabel = "Lumerical_INTERCONNECT_library=Design kits/EBeam"

	pinLength   = 0.1 // µm
	pinTextSize = 0.4 // µm
	labelSize   = 0.1 // µm
	ribGrowth   = 1.4 // µm
	sineSamples = 40
	bendSamples = 64
	taperRatio  = 50 // taper length per unit of width change
)

// Pin is a port of the produced cell. Direction is in degrees and points
// out of the device.
type Pin struct {
	Name      string `json:"name"`
	Center    Point  `json:"center"`
	Width     int64  `json:"width"`
	Direction int    `json:"direction"`
	Layer     Layer  `json:"layer"`
}

// Cell summarizes a produced device.
type Cell struct {
	Name    string   `json:"name"`
	Kind    CellKind `json:"kind"`
	DBU     float64  `json:"dbu"`
	Length  int64    `json:"length"`
	Periods []int64  `json:"-"`
	BBox    Box      `json:"bbox"`
	Pins    []Pin    `json:"pins"`
	// MinBendRadius is the tightest curvature radius of the S-bends in
	// micrometres, 0 when the cell has none.
	MinBendRadius float64 `json:"min_bend_radius"`
	Shapes        int     `json:"shapes"`
}

// Pin returns the named pin.
func (c *Cell) Pin(name string) (Pin, bool) {
	for _, p := range c.Pins {
		if p.Name == name {
			return p, true
		}
	}
	return Pin{}, false
}

// Produce draws kind into host. Nothing is inserted when an error is
// returned.
func Produce(kind CellKind, spec grating.Spec, opts Options, host Host) (*Cell, error) {
	cell, shapes, err := Build(kind, spec, opts, host.DBU())
	if err != nil {
		return nil, err
	}
	for _, s := range shapes {
		s.Emit(host)
	}
	return cell, nil
}

// Build synthesizes the cell without a host and returns the shapes in
// emission order. A zero dbu falls back to opts.DBU, then units.DefaultDBU.
func Build(kind CellKind, spec grating.Spec, opts Options, dbu float64) (*Cell, []Shape, error) {
	if dbu == 0 {
		dbu = opts.DBU
	}
	if dbu == 0 {
		dbu = units.DefaultDBU
	}
	opts.DBU = dbu
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	if err := opts.Validate(kind); err != nil {
		return nil, nil, err
	}

	b := &builder{kind: kind, spec: spec, opts: opts, dbu: dbu}
	if err := b.plan(); err != nil {
		return nil, nil, err
	}
	b.draw()

	cell := &Cell{
		Name:          b.name(),
		Kind:          kind,
		DBU:           dbu,
		Length:        b.length,
		Periods:       b.starts,
		BBox:          b.devrec,
		Pins:          b.pins,
		MinBendRadius: b.minRadius,
		Shapes:        len(b.shapes),
	}
	return cell, b.shapes, nil
}

type builder struct {
	kind CellKind
	spec grating.Spec
	opts Options
	dbu  float64

	starts []int64 // period boundaries, N+1 entries
	shift  int64   // anti-reflection offset of waveguide 2
	length int64

	hw1, hw2 int64 // core half-widths
	c1, c2   int64 // waveguide centrelines
	d1, d2   []int64

	// port geometry, zero without S-bends
	offset, bendLen, taperLen, hwPort int64

	devrec    Box
	core      []Shape
	pins      []Pin
	minRadius float64
	shapes    []Shape
}

func (b *builder) um(v float64) int64 { return units.ToDBU(v, b.dbu) }

func (b *builder) add(s Shape) { b.shapes = append(b.shapes, s) }

func (b *builder) addCore(s Shape) {
	b.add(s)
	b.core = append(b.core, s)
}

func (b *builder) name() string {
	if b.kind == KindContraDCChirped {
		return fmt.Sprintf("%s_%dN-%.1f-%.1fnm period", b.kind, b.spec.NumberOfPeriods,
			b.spec.GratingPeriod*1000, b.opts.GratingPeriodEnd*1000)
	}
	return grating.DisplayName(b.spec)
}

// localPeriods returns Λₙ in micrometres for the layout segmentation, one
// segment per period.
func (b *builder) localPeriods() []float64 {
	s := b.spec
	N := s.NumberOfPeriods
	profile := grating.NormalizedEnvelope(s.ApodizationIndex, N, N)
	chirp := grating.ChirpMultipliers(s.Chirp, profile)
	out := make([]float64, N)
	for n := range out {
		p := s.GratingPeriod
		if b.kind == KindContraDCChirped && N > 1 {
			p += (b.opts.GratingPeriodEnd - s.GratingPeriod) * float64(n) / float64(N-1)
		}
		out[n] = p * chirp[n]
	}
	return out
}

// plan fixes every coordinate before anything is drawn.
func (b *builder) plan() error {
	s := b.spec
	N := s.NumberOfPeriods

	b.starts = make([]int64, N+1)
	z := 0.0
	for n, p := range b.localPeriods() {
		z += p
		b.starts[n+1] = b.um(z)
		if b.starts[n+1]-b.starts[n] < 2 {
			return &grating.GeometryError{
				Param:  "grating_period",
				Value:  p,
				Reason: fmt.Sprintf("period %d is shorter than two database units", n),
			}
		}
	}
	if s.AntiReflection {
		b.shift = b.um(s.GratingPeriod / 2)
	}
	b.length = b.starts[N] + b.shift

	b.hw1, b.hw2 = b.um(s.Wg1Width/2), b.um(s.Wg2Width/2)
	gap := b.um(s.Gap / 2)
	b.c1 = -(b.hw1 + gap)
	b.c2 = b.hw2 + gap

	b.d1 = b.amplitudes(s.Corrugation1Width)
	b.d2 = b.amplitudes(s.Corrugation2Width)
	var errs []error
	for _, w := range []struct {
		name string
		hw   int64
		amp  []int64
		cw   float64
	}{
		{"corrugation1_width", b.hw1, b.d1, s.Corrugation1Width},
		{"corrugation2_width", b.hw2, b.d2, s.Corrugation2Width},
	} {
		for _, d := range w.amp {
			if w.hw-d <= 0 {
				errs = append(errs, &grating.GeometryError{
					Param:  w.name,
					Value:  w.cw,
					Reason: "tooth cuts through the core after rounding",
				})
				break
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if b.opts.SBend {
		w1, w2, pw := 2*b.hw1, 2*b.hw2, b.um(b.opts.PortWidth)
		b.hwPort = pw / 2
		b.offset = 5*pw - (w1+w2)/2 - 2*gap
		if b.offset <= 0 {
			return fmt.Errorf("%w: port_w = %g leaves no room for the S-bend offset", ErrInvalidOptions, b.opts.PortWidth)
		}
		b.bendLen = b.um(b.opts.SBendLength)
		b.taperLen = taperRatio * max(abs(w1-pw), abs(w2-pw))
		reach := b.bendLen + b.taperLen
		margin := 3 * pw
		b.devrec = NewBox(-reach, b.c1-b.offset-margin, b.length+reach, b.c2+margin)
	} else {
		margin := 3 * (b.hw1 + b.hw2)
		b.devrec = NewBox(0, b.c1-margin, b.length, b.c2+margin)
	}
	return nil
}

// amplitudes returns the tooth half-amplitude of every period from the raw
// Gaussian envelope.
func (b *builder) amplitudes(cw float64) []int64 {
	N := b.spec.NumberOfPeriods
	env := grating.Envelope(b.spec.ApodizationIndex, N, N)
	half := float64(b.um(cw / 2))
	out := make([]int64, N)
	for i, e := range env {
		out[i] = int64(math.Round(half * e))
	}
	return out
}

func (b *builder) draw() {
	b.teeth(b.c1, b.hw1, b.d1, 0)
	b.teeth(b.c2, b.hw2, b.d2, b.shift)
	if b.shift > 0 {
		end := b.starts[len(b.starts)-1]
		b.addCore(boxShape(LayerSiCore, Box{end, b.c1 - b.hw1, end + b.shift, b.c1 + b.hw1}))
		b.addCore(boxShape(LayerSiCore, Box{0, b.c2 - b.hw2, b.shift, b.c2 + b.hw2}))
	}
	b.ports()
	if b.opts.Rib {
		b.rib()
	}
	if b.opts.Metal {
		b.heater()
	}
	b.opticalPins()
	if b.opts.Metal {
		b.electricalPins()
	}
	b.add(boxShape(LayerDevRec, b.devrec))
	b.labels()
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
