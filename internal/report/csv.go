package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

func formatDB(v float64) string {
	if !finite(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteCSV writes one row per wavelength: wavelength in nm, through and
// drop power in dB. Failed points leave the power cells empty.
func WriteCSV(w io.Writer, s Spectrum) error {
	if err := s.Validate(); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"wavelength_nm", "through_db", "drop_db"}); err != nil {
		return err
	}
	for i, lam := range s.Wavelengths {
		row := []string{
			strconv.FormatFloat(lam*1e9, 'f', 6, 64),
			formatDB(s.ThroughDB[i]),
			formatDB(s.DropDB[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
