package grating

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Spec)
		param  string
	}{
		{"zero periods", func(s *Spec) { s.NumberOfPeriods = 0 }, "number_of_periods"},
		{"negative periods", func(s *Spec) { s.NumberOfPeriods = -5 }, "number_of_periods"},
		{"zero period", func(s *Spec) { s.GratingPeriod = 0 }, "grating_period"},
		{"negative wg1", func(s *Spec) { s.Wg1Width = -0.45 }, "wg1_width"},
		{"zero wg2", func(s *Spec) { s.Wg2Width = 0 }, "wg2_width"},
		{"zero gap", func(s *Spec) { s.Gap = 0 }, "gap"},
		{"corrugation cuts core", func(s *Spec) { s.Corrugation1Width = 0.45 }, "corrugation1_width"},
		{"negative corrugation", func(s *Spec) { s.Corrugation2Width = -0.01 }, "corrugation2_width"},
		{"negative apodization", func(s *Spec) { s.ApodizationIndex = -1 }, "apodization_index"},
		{"chirp folds period", func(s *Spec) { s.Chirp = ChirpPolicy{LinearPct: 150} }, "chirp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := DefaultSpec()
			tt.modify(&s)

			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidGeometry))

			var gerr *GeometryError
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.param, gerr.Param)
		})
	}
}

func TestSpecValidate_ReportsEveryViolation(t *testing.T) {
	s := DefaultSpec()
	s.Gap = -1
	s.Wg1Width = 0

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap")
	assert.Contains(t, err.Error(), "wg1_width")
}

func TestSpecValidate_Defaults(t *testing.T) {
	require.NoError(t, DefaultSpec().Validate())

	s := DefaultSpec()
	s.Corrugation1Width, s.Corrugation2Width = 0, 0
	s.ApodizationIndex = 0
	s.Chirp = DefaultChirpPolicy(7)
	assert.NoError(t, s.Validate())
}

func TestSpecLength(t *testing.T) {
	s := DefaultSpec()
	s.NumberOfPeriods = 500
	assert.InDelta(t, 158.5, s.Length(), 1e-9)
}
