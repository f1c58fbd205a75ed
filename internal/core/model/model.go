// Package model holds the request types shared by the router and the
// pipeline modes.
package model

// ComputeRequest is a validated single-scene index computation.
type ComputeRequest struct {
	Scene string
	Index string

	// Stats attaches a regional summary to the response.
	Stats bool
	// ZonalRes attaches per-H3-cell means at this resolution; -1 disables.
	ZonalRes int
}

// ChangeRequest is a validated two-acquisition composite (post - pre).
type ChangeRequest struct {
	Pre   string
	Post  string
	Index string
}

// FloodRequest is a validated backscatter water-mask computation: despeckle
// one band, then classify it against a threshold.
type FloodRequest struct {
	Scene     string
	Band      string
	Op        string
	Threshold float64

	// Radius of the despeckle window; 0 skips smoothing.
	Radius int
}

// Cells is an ordered set of H3 cell identifiers.
type Cells []string
