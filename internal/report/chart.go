package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, len(y))
	for i, v := range y {
		if finite(v) {
			data[i] = opts.LineData{Value: v}
		} else {
			// echarts leaves a gap for "-"
			data[i] = opts.LineData{Value: "-"}
		}
	}
	return data
}

// NewChart builds an interactive line chart of the spectrum.
func NewChart(s Spectrum) (*charts.Line, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	x := make([]string, len(s.Wavelengths))
	for i, lam := range s.Wavelengths {
		x[i] = strconv.FormatFloat(lam*1e9, 'f', 3, 64)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Name, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Name, Subtitle: fmt.Sprintf("points=%d", len(x))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Wavelength (nm)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Transmission (dB)", NameLocation: "middle", NameGap: 40, Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	line.SetXAxis(x).
		AddSeries("Through", lineData(s.ThroughDB)).
		AddSeries("Drop", lineData(s.DropDB)).
		SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line, nil
}

// RenderHTML writes a standalone HTML page with the spectrum chart.
func RenderHTML(w io.Writer, s Spectrum) error {
	line, err := NewChart(s)
	if err != nil {
		return err
	}
	return line.Render(w)
}
