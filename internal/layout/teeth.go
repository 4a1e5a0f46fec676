package layout

import "math"

// teeth draws one corrugated waveguide along its centreline. shift moves
// every tooth in +x.
func (b *builder) teeth(center, hw int64, amp []int64, shift int64) {
	var dmax int64
	for i, d := range amp {
		x0, x1 := b.starts[i]+shift, b.starts[i+1]+shift
		xm := x0 + (x1-x0)/2
		dmax = max(dmax, d)
		if b.spec.Sinusoidal {
			upper, lower := sineTooth(x0, x1, center, hw, d)
			b.add(polygonShape(LayerSiCore, upper))
			b.add(polygonShape(LayerSiCore, lower))
			continue
		}
		b.add(boxShape(LayerSiCore, Box{x0, center, xm, center + hw + d}))
		b.add(boxShape(LayerSiCore, Box{xm, center, x1, center + hw - d}))
		b.add(boxShape(LayerSiCore, Box{x0, center - hw - d, xm, center}))
		b.add(boxShape(LayerSiCore, Box{xm, center - hw + d, x1, center}))
	}
	n := len(b.starts) - 1
	b.core = append(b.core, boxShape(LayerSiCore, Box{b.starts[0] + shift, center - hw - dmax, b.starts[n] + shift, center + hw + dmax}))
}

var sineTable = func() [sineSamples + 1]float64 {
	var t [sineSamples + 1]float64
	for k := range t {
		t[k] = math.Sin(2 * math.Pi * float64(k) / sineSamples)
	}
	return t
}()

// sineTooth returns the upper and lower polygons of one sinusoidal period.
// The lower polygon is the exact mirror of the upper about center.
func sineTooth(x0, x1, center, hw, d int64) (upper, lower []Point) {
	upper = make([]Point, 0, sineSamples+3)
	lower = make([]Point, 0, sineSamples+3)
	upper = append(upper, Point{x0, center})
	lower = append(lower, Point{x0, center})
	span := float64(x1 - x0)
	for k, s := range sineTable {
		x := x0 + int64(math.Round(span*float64(k)/sineSamples))
		dy := hw + int64(math.Round(float64(d)*s))
		upper = append(upper, Point{x, center + dy})
		lower = append(lower, Point{x, center - dy})
	}
	upper = append(upper, Point{x1, center})
	lower = append(lower, Point{x1, center})
	return upper, lower
}
