// Package cmt solves the coupled-mode equations of a contra-directional
// coupler with the transfer-matrix method.
//
// The grating is cut into piecewise-uniform segments. For every wavelength
// the segment operators S1 (propagation) and S2 (coupling) are exponentiated,
// chained into the left-to-right transfer matrix P, reordered into the in-out
// scattering form H and read out as through and drop fields. Wavelengths are
// independent and are solved on a bounded worker pool; segments within one
// wavelength are accumulated strictly in order.
//
// All quantities are SI: metres, 1/m, kelvin. Field amplitudes are slowly
// varying, with the carrier exp(-jβz) factored out.
package cmt
