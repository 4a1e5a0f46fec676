package layout

import (
	"math"

	"github.com/siepic/ebeam-cdc/internal/grating"
)

// ports draws the opt1..opt4 port sections in that order and records the
// optical pins.
func (b *builder) ports() {
	pw := 2 * b.hwPort
	if !b.opts.SBend {
		b.pins = append(b.pins,
			Pin{Name: "opt1", Center: Point{0, b.c1}, Width: 2 * b.hw1, Direction: 180, Layer: LayerPinRec},
			Pin{Name: "opt2", Center: Point{0, b.c2}, Width: 2 * b.hw2, Direction: 180, Layer: LayerPinRec},
			Pin{Name: "opt3", Center: Point{b.length, b.c1}, Width: 2 * b.hw1, Direction: 0, Layer: LayerPinRec},
			Pin{Name: "opt4", Center: Point{b.length, b.c2}, Width: 2 * b.hw2, Direction: 0, Layer: LayerPinRec},
		)
		return
	}

	reach := b.bendLen + b.taperLen
	low := b.c1 - b.offset
	spine := b.bend()

	// opt1: S-bend away from the grating, then the taper to the port width.
	left := Trans{Rot: R180, Disp: Point{0, b.c1}}
	b.addCore(pathShape(LayerSiCore, Path{Points: left.ApplyAll(spine), Width: 2 * b.hw1}))
	b.taper(-reach, low, b.hwPort, b.hw1)

	// opt2: straight stub, then taper.
	b.addCore(boxShape(LayerSiCore, Box{-b.bendLen, b.c2 - b.hw2, 0, b.c2 + b.hw2}))
	b.taper(-reach, b.c2, b.hwPort, b.hw2)

	// opt3
	right := Trans{Mirror: true, Disp: Point{b.length, b.c1}}
	b.addCore(pathShape(LayerSiCore, Path{Points: right.ApplyAll(spine), Width: 2 * b.hw1}))
	b.taper(b.length+b.bendLen, low, b.hw1, b.hwPort)

	// opt4
	b.addCore(boxShape(LayerSiCore, Box{b.length, b.c2 - b.hw2, b.length + b.bendLen, b.c2 + b.hw2}))
	b.taper(b.length+b.bendLen, b.c2, b.hw2, b.hwPort)

	b.pins = append(b.pins,
		Pin{Name: "opt1", Center: Point{-reach, low}, Width: pw, Direction: 180, Layer: LayerPinRec},
		Pin{Name: "opt2", Center: Point{-reach, b.c2}, Width: pw, Direction: 180, Layer: LayerPinRec},
		Pin{Name: "opt3", Center: Point{b.length + reach, low}, Width: pw, Direction: 0, Layer: LayerPinRec},
		Pin{Name: "opt4", Center: Point{b.length + reach, b.c2}, Width: pw, Direction: 0, Layer: LayerPinRec},
	)
}

// taper draws a linear taper starting at x with half-width from and ending
// taperLen later with half-width to. A zero-length taper is skipped.
func (b *builder) taper(x, y, from, to int64) {
	if b.taperLen == 0 {
		return
	}
	x1 := x + b.taperLen
	b.addCore(polygonShape(LayerSiCore, []Point{
		{x, y - from}, {x1, y - to}, {x1, y + to}, {x, y + from},
	}))
}

// bend returns the spine of the cubic Bezier S-bend in its local frame, from
// (0, 0) to (bendLen, offset), and records its minimum radius of curvature.
func (b *builder) bend() []Point {
	L, h := float64(b.bendLen), float64(b.offset)
	c := bezier{
		{0, 0}, {L / 2, 0}, {L / 2, h}, {L, h},
	}
	pts := make([]Point, 0, bendSamples+1)
	for k := 0; k <= bendSamples; k++ {
		x, y := c.at(float64(k) / bendSamples)
		p := Point{int64(math.Round(x)), int64(math.Round(y))}
		if len(pts) > 0 && pts[len(pts)-1] == p {
			continue
		}
		pts = append(pts, p)
	}

	b.minRadius = c.minRadius(1000) * b.dbu
	if b.minRadius > 0 && b.minRadius < b.opts.SBendRadius {
		logf("warning: S-bend radius %.2f um is below the requested %.2f um (length %.2f um, offset %.3f um)",
			b.minRadius, b.opts.SBendRadius, L*b.dbu, h*b.dbu)
	}
	return pts
}

// bezier holds the four control points of a cubic curve.
type bezier [4][2]float64

func (c bezier) at(t float64) (x, y float64) {
	u := 1 - t
	w := [4]float64{u * u * u, 3 * u * u * t, 3 * u * t * t, t * t * t}
	for i, p := range c {
		x += w[i] * p[0]
		y += w[i] * p[1]
	}
	return x, y
}

// curvature returns |x'y'' - y'x''| / |v|³ at t.
func (c bezier) curvature(t float64) float64 {
	u := 1 - t
	var d1, d2 [2]float64
	for k := 0; k < 2; k++ {
		d1[k] = 3*u*u*(c[1][k]-c[0][k]) + 6*u*t*(c[2][k]-c[1][k]) + 3*t*t*(c[3][k]-c[2][k])
		d2[k] = 6*u*(c[2][k]-2*c[1][k]+c[0][k]) + 6*t*(c[3][k]-2*c[2][k]+c[1][k])
	}
	speed := math.Hypot(d1[0], d1[1])
	if speed == 0 {
		return 0
	}
	return math.Abs(d1[0]*d2[1]-d1[1]*d2[0]) / (speed * speed * speed)
}

// minRadius samples the curve and returns 1/max curvature, or 0 for a
// straight curve.
func (c bezier) minRadius(samples int) float64 {
	var kmax float64
	for i := 0; i <= samples; i++ {
		kmax = max(kmax, c.curvature(float64(i)/float64(samples)))
	}
	if kmax == 0 {
		return 0
	}
	return 1 / kmax
}

// rib draws the slab of a rib waveguide: every core primitive grown by
// ribGrowth and clipped to the device recognition box. Paths grow along
// their spine, boxes and tapers by their bounds.
func (b *builder) rib() {
	grow := b.um(ribGrowth)
	for _, c := range b.core {
		if c.Kind == ShapePath {
			slab := Path{Points: c.Points, Width: c.Width + 2*grow}
			if poly := clipToBox(slab.Outline(), b.devrec); len(poly) >= 3 {
				b.add(polygonShape(LayerRib, poly))
			}
			continue
		}
		r := c.Bounds().Enlarge(grow).Intersect(b.devrec)
		if !r.Empty() {
			b.add(boxShape(LayerRib, r))
		}
	}
}

// heater draws the heater strip centred on the gap and the two contact
// pads at its ends.
func (b *builder) heater() {
	hh := b.um(b.opts.HeaterWidth / 2)
	mw := b.um(b.opts.MetalWidth)
	b.add(boxShape(LayerHeater, Box{0, -hh, b.length, hh}))
	b.add(boxShape(LayerRouter, Box{0, -hh, mw, hh}))
	b.add(boxShape(LayerRouter, Box{b.length - mw, -hh, b.length, hh}))
	b.pins = append(b.pins,
		Pin{Name: "elec1", Center: Point{mw / 2, -hh}, Width: mw, Direction: 270, Layer: LayerPinRecMetal},
		Pin{Name: "elec2", Center: Point{b.length - mw/2, -hh}, Width: mw, Direction: 270, Layer: LayerPinRecMetal},
	)
}

func (b *builder) opticalPins() {
	for _, p := range b.pins {
		if p.Layer == LayerPinRec {
			b.pin(p)
		}
	}
}

func (b *builder) electricalPins() {
	for _, p := range b.pins {
		if p.Layer == LayerPinRecMetal {
			b.pin(p)
		}
	}
}

// pin draws a short path straddling the port, pointing outwards, and the
// pin name.
func (b *builder) pin(p Pin) {
	half := b.um(pinLength) / 2
	t := Trans{Rot: Rotation(p.Direction / 90), Disp: p.Center}
	b.add(pathShape(p.Layer, Path{
		Points: t.ApplyAll([]Point{{-half, 0}, {half, 0}}),
		Width:  p.Width,
	}))
	b.add(textShape(p.Layer, Text{String: p.Name, Pos: p.Center, Size: b.um(pinTextSize)}))
}

// labels writes the compact model labels and the Spice annotation inside
// the device recognition box.
func (b *builder) labels() {
	size := b.um(labelSize)
	step := b.hw1 + b.hw2
	x := b.devrec.Left
	y := b.c1
	for _, s := range []string{
		LibraryLabel,
		"Component=" + KindContraDC.String(),
		grating.SpiceAnnotation(b.spec),
	} {
		b.add(textShape(LayerDevRec, Text{String: s, Pos: Point{x, y}, Size: size}))
		y -= step
	}
}
