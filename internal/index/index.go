// Package index implements the spectral index registry and the per-pixel
// evaluation engine. Formulas are pure functions over named band roles; all
// state lives in the Registry, which freezes after its first lookup.
package index

import (
	"fmt"
	"math"
)

// Values holds the per-pixel reflectance of each band role a formula needs.
type Values map[string]float64

// Formula computes one index value from the band values of a single pixel.
// An undefined result (division by a near-zero denominator) is signalled by
// returning NaN, normally via SafeDiv; the engine masks such pixels.
type Formula func(v Values) float64

// Range is the documented output interval of an index. Computed values are
// clamped into it, not discarded.
type Range struct {
	Min, Max float64
}

// Definition binds an index name to its required band roles, formula and
// output range. Definitions are immutable once registered.
type Definition struct {
	Name  string
	Bands []string
	Range *Range
	Fn    Formula
}

// Epsilon is the absolute division-safety threshold: a denominator with
// |den| < Epsilon yields a masked pixel instead of Inf/NaN. Reflectance
// inputs are O(1), so an absolute cutoff is sufficient.
const Epsilon = 1e-9

// SafeDiv divides num by den, returning NaN when the denominator is within
// Epsilon of zero. Every ratio-based formula must divide through it.
func SafeDiv(num, den float64) float64 {
	if math.Abs(den) < Epsilon {
		return math.NaN()
	}
	return num / den
}

// UnknownIndexError reports a lookup of a name that was never registered.
type UnknownIndexError struct {
	Name string
}

func (e *UnknownIndexError) Error() string {
	return fmt.Sprintf("index: unknown index %q", e.Name)
}

// DuplicateIndexError reports a registration collision.
type DuplicateIndexError struct {
	Name string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("index: %q already registered", e.Name)
}

// MissingBandError reports a raster that lacks a band role the resolved
// definition requires.
type MissingBandError struct {
	Index string
	Role  string
}

func (e *MissingBandError) Error() string {
	return fmt.Sprintf("index %s: raster is missing required band %q", e.Index, e.Role)
}

// InvalidFormulaError reports a defect in a registered definition: a
// malformed registration, or a formula that panics during evaluation.
type InvalidFormulaError struct {
	Index  string
	Reason string
}

func (e *InvalidFormulaError) Error() string {
	return fmt.Sprintf("index %s: invalid formula: %s", e.Index, e.Reason)
}

// ShapeMismatchError reports composite inputs whose grids or extents differ.
type ShapeMismatchError struct {
	Pre, Post string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("index: composite inputs do not share a grid (pre %s, post %s)", e.Pre, e.Post)
}
