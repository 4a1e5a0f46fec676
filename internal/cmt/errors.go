package cmt

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDispersion reports missing or inconsistent mode data or an
	// unusable wavelength grid.
	ErrInvalidDispersion = errors.New("invalid dispersion")
	// ErrNumericOverflow reports an exponent argument beyond the safe bound
	// or a non-finite transfer matrix.
	ErrNumericOverflow = errors.New("numeric overflow")
	// ErrSingularBlock reports a backward-backward block of P that cannot be
	// inverted, i.e. no physical solution at that wavelength.
	ErrSingularBlock = errors.New("singular block")
	// ErrCancelled reports a simulation stopped through its context.
	ErrCancelled = errors.New("cancelled")
)

// Stages at which a wavelength can fail.
const (
	StageTransfer = "transfer"
	StageInOut    = "in-out"
	StageTopDown  = "top-down"
)

// PointError is a failure at one wavelength of the grid.
type PointError struct {
	Index      int
	Wavelength float64
	Stage      string
	Segment    int // -1 when not tied to a segment
	Err        error
}

func (e *PointError) Error() string {
	if e.Segment >= 0 {
		return fmt.Sprintf("wavelength %d (%.4f nm), %s, segment %d: %v",
			e.Index, e.Wavelength*1e9, e.Stage, e.Segment, e.Err)
	}
	return fmt.Sprintf("wavelength %d (%.4f nm), %s: %v", e.Index, e.Wavelength*1e9, e.Stage, e.Err)
}

func (e *PointError) Unwrap() error { return e.Err }

// cancelledError carries the context cause alongside ErrCancelled.
type cancelledError struct {
	cause error
}

func (e *cancelledError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCancelled, e.cause)
}

func (e *cancelledError) Is(target error) bool { return target == ErrCancelled }

func (e *cancelledError) Unwrap() error { return e.cause }
