package layout

// Layer is a semantic layer tag. Hosts map tags to their own layer numbers,
// see LayerMap.
type Layer string

const (
	LayerSiCore      Layer = "si_core"
	LayerPinRec      Layer = "pin_recognition"
	LayerDevRec      Layer = "device_recognition"
	LayerRib         Layer = "rib"
	LayerHeater      Layer = "m1_heater"
	LayerRouter      Layer = "m2_router"
	LayerPinRecMetal Layer = "pin_recognition_metal"
)

// Layers lists every tag in a stable order.
var Layers = []Layer{
	LayerSiCore, LayerPinRec, LayerDevRec, LayerRib, LayerHeater, LayerRouter, LayerPinRecMetal,
}

// Host receives shapes. Calls arrive in emission order; a Host never sees a
// partially built cell.
type Host interface {
	InsertPolygon(layer Layer, pts []Point)
	InsertBox(layer Layer, b Box)
	InsertPath(layer Layer, p Path)
	InsertText(layer Layer, t Text)
	// DBU is the size of one database unit in micrometres.
	DBU() float64
}

// ShapeKind discriminates Shape.
type ShapeKind int

const (
	ShapePolygon ShapeKind = iota
	ShapeBox
	ShapePath
	ShapeText
)

func (k ShapeKind) String() string {
	switch k {
	case ShapePolygon:
		return "polygon"
	case ShapeBox:
		return "box"
	case ShapePath:
		return "path"
	case ShapeText:
		return "text"
	}
	return "unknown"
}

// Shape is one buffered host call. Only the fields of its Kind are set.
type Shape struct {
	Kind   ShapeKind `json:"kind"`
	Layer  Layer     `json:"layer"`
	Points []Point   `json:"points,omitempty"`
	Box    Box       `json:"box,omitzero"`
	Width  int64     `json:"width,omitempty"`
	Text   string    `json:"text,omitempty"`
	Size   int64     `json:"size,omitempty"`
}

// Emit replays the shape to h.
func (s Shape) Emit(h Host) {
	switch s.Kind {
	case ShapePolygon:
		h.InsertPolygon(s.Layer, s.Points)
	case ShapeBox:
		h.InsertBox(s.Layer, s.Box)
	case ShapePath:
		h.InsertPath(s.Layer, Path{Points: s.Points, Width: s.Width})
	case ShapeText:
		h.InsertText(s.Layer, Text{String: s.Text, Pos: s.Points[0], Size: s.Size})
	}
}

// Bounds returns the shape's bounding box. Texts have none.
func (s Shape) Bounds() Box {
	switch s.Kind {
	case ShapePolygon:
		return boundsOf(s.Points)
	case ShapeBox:
		return s.Box
	case ShapePath:
		return pathBounds(Path{Points: s.Points, Width: s.Width})
	}
	return Box{}
}

// Transformed returns a copy of s mapped by t.
func (s Shape) Transformed(t Trans) Shape {
	out := s
	if s.Kind == ShapeBox {
		out.Box = t.ApplyBox(s.Box)
		return out
	}
	out.Points = t.ApplyAll(s.Points)
	return out
}

func polygonShape(layer Layer, pts []Point) Shape {
	return Shape{Kind: ShapePolygon, Layer: layer, Points: pts}
}

func boxShape(layer Layer, b Box) Shape {
	return Shape{Kind: ShapeBox, Layer: layer, Box: b}
}

func pathShape(layer Layer, p Path) Shape {
	return Shape{Kind: ShapePath, Layer: layer, Points: p.Points, Width: p.Width}
}

func textShape(layer Layer, t Text) Shape {
	return Shape{Kind: ShapeText, Layer: layer, Points: []Point{t.Pos}, Text: t.String, Size: t.Size}
}
