package layout

import "fmt"

// Rotation is a counter-clockwise rotation by a multiple of 90 degrees.
type Rotation int

const (
	R0 Rotation = iota
	R90
	R180
	R270
)

func (r Rotation) norm() Rotation { return ((r % 4) + 4) % 4 }

// Degrees returns the rotation angle.
func (r Rotation) Degrees() int { return int(r.norm()) * 90 }

// Trans is a simple transformation: an optional mirror about the x axis,
// then a rotation, then a displacement.
type Trans struct {
	Rot    Rotation
	Mirror bool
	Disp   Point
}

// Translate returns a pure displacement.
func Translate(x, y int64) Trans { return Trans{Disp: Point{x, y}} }

func (t Trans) String() string {
	m := ""
	if t.Mirror {
		m = "m"
	}
	return fmt.Sprintf("%sr%d %s", m, t.Rot.Degrees(), t.Disp)
}

func rotate(p Point, r Rotation) Point {
	switch r.norm() {
	case R90:
		return Point{-p.Y, p.X}
	case R180:
		return Point{-p.X, -p.Y}
	case R270:
		return Point{p.Y, -p.X}
	}
	return p
}

// Apply maps a point.
func (t Trans) Apply(p Point) Point {
	if t.Mirror {
		p.Y = -p.Y
	}
	return rotate(p, t.Rot).Add(t.Disp)
}

// Compose returns the transformation that applies u first and then t.
func (t Trans) Compose(u Trans) Trans {
	out := Trans{Disp: t.Apply(u.Disp)}
	if t.Mirror {
		// M·R(u) = R(-u)·M
		out.Rot = (t.Rot - u.Rot).norm()
		out.Mirror = !u.Mirror
	} else {
		out.Rot = (t.Rot + u.Rot).norm()
		out.Mirror = u.Mirror
	}
	return out
}

// Inverse returns the transformation undoing t.
func (t Trans) Inverse() Trans {
	var inv Trans
	if t.Mirror {
		inv = Trans{Rot: t.Rot.norm(), Mirror: true}
	} else {
		inv = Trans{Rot: (-t.Rot).norm()}
	}
	d := inv.Apply(t.Disp)
	inv.Disp = Point{-d.X, -d.Y}
	return inv
}

// ApplyAll maps every point into a new slice.
func (t Trans) ApplyAll(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = t.Apply(p)
	}
	return out
}

// ApplyBox maps a box. Rotations by multiples of 90 degrees keep it
// axis-aligned.
func (t Trans) ApplyBox(b Box) Box {
	p1 := t.Apply(Point{b.Left, b.Bottom})
	p2 := t.Apply(Point{b.Right, b.Top})
	return NewBox(p1.X, p1.Y, p2.X, p2.Y)
}
