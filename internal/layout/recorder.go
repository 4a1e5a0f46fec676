package layout

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"
)

// Recorder is an in-memory Host that keeps shapes in insertion order.
type Recorder struct {
	dbu    float64
	Shapes []Shape
}

// NewRecorder returns an empty Recorder with the given database unit in
// micrometres.
func NewRecorder(dbu float64) *Recorder {
	return &Recorder{dbu: dbu}
}

func (r *Recorder) DBU() float64 { return r.dbu }

func (r *Recorder) InsertPolygon(layer Layer, pts []Point) {
	r.Shapes = append(r.Shapes, polygonShape(layer, append([]Point(nil), pts...)))
}

func (r *Recorder) InsertBox(layer Layer, b Box) {
	r.Shapes = append(r.Shapes, boxShape(layer, b))
}

func (r *Recorder) InsertPath(layer Layer, p Path) {
	p.Points = append([]Point(nil), p.Points...)
	r.Shapes = append(r.Shapes, pathShape(layer, p))
}

func (r *Recorder) InsertText(layer Layer, t Text) {
	r.Shapes = append(r.Shapes, textShape(layer, t))
}

// OnLayer returns the shapes of one layer in insertion order.
func (r *Recorder) OnLayer(layer Layer) []Shape {
	var out []Shape
	for _, s := range r.Shapes {
		if s.Layer == layer {
			out = append(out, s)
		}
	}
	return out
}

// Bounds is the union of all shape bounds.
func (r *Recorder) Bounds() Box {
	var b Box
	for _, s := range r.Shapes {
		if s.Kind == ShapeText {
			continue
		}
		b = b.Union(s.Bounds())
	}
	return b
}

// WriteCanonical writes one line per shape:
//
//	polygon <layer> x,y x,y ...
//	box <layer> l,b;r,t
//	path <layer> <width> x,y x,y ...
//	text <layer> <size> x,y "<string>"
func (r *Recorder) WriteCanonical(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, s := range r.Shapes {
		bw.WriteString(s.Kind.String())
		bw.WriteByte(' ')
		bw.WriteString(string(s.Layer))
		switch s.Kind {
		case ShapeBox:
			bw.WriteByte(' ')
			bw.WriteString(s.Box.String())
		case ShapePath:
			fmt.Fprintf(bw, " %d", s.Width)
			writePoints(bw, s.Points)
		case ShapeText:
			fmt.Fprintf(bw, " %d %s %s", s.Size, s.Points[0], strconv.Quote(s.Text))
		default:
			writePoints(bw, s.Points)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func writePoints(w *bufio.Writer, pts []Point) {
	for _, p := range pts {
		w.WriteByte(' ')
		w.WriteString(p.String())
	}
}

// Canonical returns the canonical text form.
func (r *Recorder) Canonical() []byte {
	var buf bytes.Buffer
	_ = r.WriteCanonical(&buf)
	return buf.Bytes()
}

// Hash returns the hex SHA-256 of the canonical text form. Two identical
// cells hash identically.
func (r *Recorder) Hash() string {
	sum := sha256.Sum256(r.Canonical())
	return hex.EncodeToString(sum[:])
}

// Document is the JSON export of a produced cell.
type Document struct {
	Cell   *Cell   `json:"cell,omitempty"`
	DBU    float64 `json:"dbu"`
	Hash   string  `json:"hash"`
	Shapes []Shape `json:"shapes"`
}

// WriteJSON writes the cell summary and every shape.
func (r *Recorder) WriteJSON(w io.Writer, cell *Cell) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Document{Cell: cell, DBU: r.dbu, Hash: r.Hash(), Shapes: r.Shapes})
}

// SVGOptions controls the preview rendering.
type SVGOptions struct {
	PixelsPerMicron float64
	Margin          int
	Texts           bool
}

// DefaultSVGOptions renders 20 pixels per micrometre without texts.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{PixelsPerMicron: 20, Margin: 10}
}

// WriteSVG renders a preview with one group per layer, y pointing up.
func (r *Recorder) WriteSVG(w io.Writer, layers LayerMap, opt SVGOptions) error {
	if opt.PixelsPerMicron <= 0 {
		opt.PixelsPerMicron = DefaultSVGOptions().PixelsPerMicron
	}
	bounds := r.Bounds()
	scale := opt.PixelsPerMicron * r.dbu
	px := func(v int64) int { return int(math.Round(float64(v) * scale)) }
	X := func(x int64) int { return px(x-bounds.Left) + opt.Margin }
	Y := func(y int64) int { return px(bounds.Top-y) + opt.Margin }

	canvas := svg.New(w)
	canvas.Start(px(bounds.Width())+2*opt.Margin, px(bounds.Height())+2*opt.Margin)
	canvas.Rect(0, 0, px(bounds.Width())+2*opt.Margin, px(bounds.Height())+2*opt.Margin, "fill:white")

	for _, layer := range Layers {
		shapes := r.OnLayer(layer)
		if len(shapes) == 0 {
			continue
		}
		info := layers.Lookup(layer)
		canvas.Group(fmt.Sprintf(`id="%s"`, layer),
			fmt.Sprintf("fill:%s;fill-opacity:0.6;stroke:%s;stroke-width:0.5", info.Color, info.Color))
		for _, s := range shapes {
			switch s.Kind {
			case ShapeBox:
				canvas.Rect(X(s.Box.Left), Y(s.Box.Top), px(s.Box.Width()), px(s.Box.Height()))
			case ShapePolygon:
				xs, ys := make([]int, len(s.Points)), make([]int, len(s.Points))
				for i, p := range s.Points {
					xs[i], ys[i] = X(p.X), Y(p.Y)
				}
				canvas.Polygon(xs, ys)
			case ShapePath:
				xs, ys := make([]int, len(s.Points)), make([]int, len(s.Points))
				for i, p := range s.Points {
					xs[i], ys[i] = X(p.X), Y(p.Y)
				}
				canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke-width:%d", max(1, px(s.Width))))
			case ShapeText:
				if opt.Texts {
					p := s.Points[0]
					canvas.Text(X(p.X), Y(p.Y), s.Text, fmt.Sprintf("font-size:%dpx;stroke:none", max(1, px(s.Size))))
				}
			}
		}
		canvas.Gend()
	}
	canvas.End()
	return nil
}
