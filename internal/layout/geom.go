package layout

import (
	"fmt"
	"math"
)

// Point is a coordinate in database units.
type Point struct {
	X, Y int64
}

func (p Point) String() string { return fmt.Sprintf("%d,%d", p.X, p.Y) }

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Box is an axis-aligned rectangle. NewBox normalizes the corners so that
// Left <= Right and Bottom <= Top.
type Box struct {
	Left, Bottom, Right, Top int64
}

// NewBox builds a Box from any two opposite corners.
func NewBox(x1, y1, x2, y2 int64) Box {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Box{Left: x1, Bottom: y1, Right: x2, Top: y2}
}

// Empty reports whether the box encloses no area.
func (b Box) Empty() bool { return b.Right <= b.Left || b.Top <= b.Bottom }

func (b Box) Width() int64  { return b.Right - b.Left }
func (b Box) Height() int64 { return b.Top - b.Bottom }

// Enlarge grows the box by d on every side.
func (b Box) Enlarge(d int64) Box {
	return Box{b.Left - d, b.Bottom - d, b.Right + d, b.Top + d}
}

// Union returns the smallest box containing both. An empty receiver is
// replaced by o.
func (b Box) Union(o Box) Box {
	if b == (Box{}) {
		return o
	}
	return Box{
		Left:   min(b.Left, o.Left),
		Bottom: min(b.Bottom, o.Bottom),
		Right:  max(b.Right, o.Right),
		Top:    max(b.Top, o.Top),
	}
}

// Intersect clips b to o. The result may be Empty.
func (b Box) Intersect(o Box) Box {
	return Box{
		Left:   max(b.Left, o.Left),
		Bottom: max(b.Bottom, o.Bottom),
		Right:  min(b.Right, o.Right),
		Top:    min(b.Top, o.Top),
	}
}

// Contains reports whether p lies inside or on the edge of b.
func (b Box) Contains(p Point) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

func (b Box) String() string {
	return fmt.Sprintf("%d,%d;%d,%d", b.Left, b.Bottom, b.Right, b.Top)
}

// Path is a polyline of a fixed width.
type Path struct {
	Points []Point
	Width  int64
}

// Text is an annotation anchored at Pos.
type Text struct {
	String string
	Pos    Point
	Size   int64
}

func boundsOf(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{pts[0].X, pts[0].Y, pts[0].X, pts[0].Y}
	for _, p := range pts[1:] {
		b.Left = min(b.Left, p.X)
		b.Right = max(b.Right, p.X)
		b.Bottom = min(b.Bottom, p.Y)
		b.Top = max(b.Top, p.Y)
	}
	return b
}

// pathBounds approximates the outline of an axis-aligned or gently curved
// path by growing its spine bounds by half the width.
func pathBounds(p Path) Box {
	return boundsOf(p.Points).Enlarge(p.Width / 2)
}

// Outline returns the polygon of p with flat ends and mitred joins. Paths
// with fewer than two distinct points have no outline.
func (p Path) Outline() []Point {
	pts := make([]Point, 0, len(p.Points))
	for _, q := range p.Points {
		if len(pts) == 0 || pts[len(pts)-1] != q {
			pts = append(pts, q)
		}
	}
	n := len(pts)
	if n < 2 {
		return nil
	}

	// unit normal of segment k, pointing to its left
	normals := make([][2]float64, n-1)
	for k := range normals {
		dx := float64(pts[k+1].X - pts[k].X)
		dy := float64(pts[k+1].Y - pts[k].Y)
		l := math.Hypot(dx, dy)
		normals[k] = [2]float64{-dy / l, dx / l}
	}

	h := float64(p.Width) / 2
	out := make([]Point, 2*n)
	for i, q := range pts {
		var off [2]float64
		switch {
		case i == 0:
			off = [2]float64{normals[0][0] * h, normals[0][1] * h}
		case i == n-1:
			off = [2]float64{normals[n-2][0] * h, normals[n-2][1] * h}
		default:
			a, b := normals[i-1], normals[i]
			m := [2]float64{a[0] + b[0], a[1] + b[1]}
			dot := m[0]*b[0] + m[1]*b[1]
			if dot < 1e-9 {
				m, dot = b, 1
			}
			off = [2]float64{m[0] * h / dot, m[1] * h / dot}
		}
		dx, dy := int64(math.Round(off[0])), int64(math.Round(off[1]))
		out[i] = Point{q.X + dx, q.Y + dy}
		out[2*n-1-i] = Point{q.X - dx, q.Y - dy}
	}
	return out
}

// clipToBox clips a simple polygon to b one box edge at a time. The result
// is empty when the polygon lies outside b.
func clipToBox(pts []Point, b Box) []Point {
	edges := []struct {
		inside func(Point) bool
		cross  func(p, q Point) Point
	}{
		{func(p Point) bool { return p.X >= b.Left }, func(p, q Point) Point { return Point{b.Left, atX(p, q, b.Left)} }},
		{func(p Point) bool { return p.X <= b.Right }, func(p, q Point) Point { return Point{b.Right, atX(p, q, b.Right)} }},
		{func(p Point) bool { return p.Y >= b.Bottom }, func(p, q Point) Point { return Point{atY(p, q, b.Bottom), b.Bottom} }},
		{func(p Point) bool { return p.Y <= b.Top }, func(p, q Point) Point { return Point{atY(p, q, b.Top), b.Top} }},
	}

	out := pts
	for _, e := range edges {
		if len(out) == 0 {
			return nil
		}
		in := out
		out = make([]Point, 0, len(in)+4)
		prev := in[len(in)-1]
		for _, cur := range in {
			switch {
			case e.inside(cur):
				if !e.inside(prev) {
					out = append(out, e.cross(prev, cur))
				}
				out = append(out, cur)
			case e.inside(prev):
				out = append(out, e.cross(prev, cur))
			}
			prev = cur
		}
	}
	return out
}

// atX returns y where segment pq crosses the vertical line at x.
func atX(p, q Point, x int64) int64 {
	t := float64(x-p.X) / float64(q.X-p.X)
	return p.Y + int64(math.Round(t*float64(q.Y-p.Y)))
}

// atY returns x where segment pq crosses the horizontal line at y.
func atY(p, q Point, y int64) int64 {
	t := float64(y-p.Y) / float64(q.Y-p.Y)
	return p.X + int64(math.Round(t*float64(q.X-p.X)))
}
