package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
)

// metricColumns are the per-combination columns after the parameters.
var metricColumns = []string{
	"peak_wavelength_nm", "peak_drop", "peak_drop_db", "bandwidth_3db_nm",
	"through_dip_nm", "through_min_db", "sidelobe_suppression_db", "failed", "run_id", "error",
}

// CSVWriter wraps csv.Writer with methods for sweep output.
type CSVWriter struct {
	w      *csv.Writer
	params []string
}

// NewCSVWriter creates a CSVWriter for the given parameter columns.
func NewCSVWriter(w io.Writer, params []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), params: params}
}

// FormatHeaders returns the column names for params.
func FormatHeaders(params []string) []string {
	header := append([]string(nil), params...)
	return append(header, metricColumns...)
}

// WriteHeader writes the column names.
func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(FormatHeaders(c.params))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

// WriteResult writes one combination.
func (c *CSVWriter) WriteResult(res ComboResult) error {
	row := make([]string, 0, len(c.params)+len(metricColumns))
	for _, p := range c.params {
		row = append(row, fmt.Sprintf("%g", res.Values[p]))
	}
	m := res.Metrics
	row = append(row,
		formatFloat(m.PeakWavelength*1e9),
		formatFloat(m.PeakDrop),
		formatFloat(m.PeakDropDB),
		formatFloat(m.Bandwidth3dB*1e9),
		formatFloat(m.ThroughDip*1e9),
		formatFloat(m.ThroughMinDB),
		formatFloat(m.SidelobeSuppressionDB),
		fmt.Sprintf("%d", res.Failed),
		res.RunID,
		res.Error,
	)
	return c.w.Write(row)
}

// WriteState writes the header and every result of a sweep.
func (c *CSVWriter) WriteState(s State) error {
	if err := c.WriteHeader(); err != nil {
		return err
	}
	for _, res := range s.Results {
		if err := c.WriteResult(res); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes the underlying writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// WriteSummaryCSV writes one row per metric: name, mean, stddev, min, max,
// count.
func WriteSummaryCSV(w io.Writer, summary map[string]Stat) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "mean", "stddev", "min", "max", "count"}); err != nil {
		return err
	}
	names := make([]string, 0, len(summary))
	for n := range summary {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		s := summary[n]
		if err := cw.Write([]string{
			n, formatFloat(s.Mean), formatFloat(s.Stddev), formatFloat(s.Min), formatFloat(s.Max),
			fmt.Sprintf("%d", s.Count),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
