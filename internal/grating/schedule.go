package grating

import (
	"fmt"
)

// Segment is one piecewise-uniform section of the grating.
type Segment struct {
	Index   int
	Z0      float64 // left edge, µm
	Length  float64 // µm
	Period  float64 // local period Λn, µm
	Profile float64 // normalized apodization envelope
	Chirp   float64 // period multiplier chirpDev(n)
}

// SegmentSchedule is the ordered segment list handed to the solver.
type SegmentSchedule struct {
	Periods       int
	NominalPeriod float64
	Segments      []Segment
}

// NewSchedule splits the grating of s into segments equal-length sections.
// The chirp policy of s is applied as is; callers that want a default chirp
// set it on s first. The Spec is validated before anything is computed.
func NewSchedule(s Spec, segments int) (*SegmentSchedule, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if segments < 1 {
		return nil, &GeometryError{Param: "segments", Value: float64(segments), Reason: "must be at least 1"}
	}

	profile := NormalizedEnvelope(s.ApodizationIndex, s.NumberOfPeriods, segments)
	chirp := ChirpMultipliers(s.Chirp, profile)
	ell := s.Length() / float64(segments)

	sched := &SegmentSchedule{
		Periods:       s.NumberOfPeriods,
		NominalPeriod: s.GratingPeriod,
		Segments:      make([]Segment, segments),
	}
	for n := range sched.Segments {
		period := s.GratingPeriod * chirp[n]
		if period <= 0 {
			return nil, &GeometryError{
				Param:  "chirp",
				Value:  period,
				Reason: fmt.Sprintf("local period of segment %d must be positive", n),
			}
		}
		sched.Segments[n] = Segment{
			Index:   n,
			Z0:      float64(n) * ell,
			Length:  ell,
			Period:  period,
			Profile: profile[n],
			Chirp:   chirp[n],
		}
	}
	return sched, nil
}

// TotalLength sums the segment lengths.
func (s *SegmentSchedule) TotalLength() float64 {
	var sum float64
	for _, seg := range s.Segments {
		sum += seg.Length
	}
	return sum
}

// Profiles returns the envelope values in segment order.
func (s *SegmentSchedule) Profiles() []float64 {
	out := make([]float64, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = seg.Profile
	}
	return out
}

// Chirps returns the period multipliers in segment order.
func (s *SegmentSchedule) Chirps() []float64 {
	out := make([]float64, len(s.Segments))
	for i, seg := range s.Segments {
		out[i] = seg.Chirp
	}
	return out
}
