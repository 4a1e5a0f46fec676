package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Default PNG size.
const (
	PlotWidth  = 10 * vg.Inch
	PlotHeight = 5 * vg.Inch
)

// points returns the finite samples of y against x in nm.
func points(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if finite(y[i]) {
			pts = append(pts, plotter.XY{X: x[i] * 1e9, Y: y[i]})
		}
	}
	return pts
}

// NewPlot draws the through and drop spectra.
func NewPlot(s Spectrum) (*plot.Plot, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := plot.New()
	p.Title.Text = s.Name
	p.X.Label.Text = "Wavelength (nm)"
	p.Y.Label.Text = "Transmission (dB)"
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		y    []float64
	}{
		{"Through", s.ThroughDB},
		{"Drop", s.DropDB},
	}
	drawn := 0
	for i, sr := range series {
		pts := points(s.Wavelengths, sr.y)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s line: %w", sr.name, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(sr.name, line)
		drawn++
	}
	if drawn == 0 {
		return nil, ErrEmptySpectrum
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SavePNG writes the spectrum plot to path.
func SavePNG(path string, s Spectrum) error {
	p, err := NewPlot(s)
	if err != nil {
		return err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes the spectrum plot as PNG.
func WritePNG(w io.Writer, s Spectrum) error {
	p, err := NewPlot(s)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PlotWidth, PlotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
