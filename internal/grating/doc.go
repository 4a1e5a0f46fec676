// Package grating models the physical grating of a contra-directional
// coupler: the parameter record, its validation, the Gaussian apodization
// envelope, the chirp schedule and the per-segment schedule consumed by the
// coupled-mode solver.
//
// Lengths are in micrometres. Every function is a pure transformation of
// its inputs; random chirp draws come from an explicit seed so that the
// layout and the simulation of one Spec describe the same device.
package grating
