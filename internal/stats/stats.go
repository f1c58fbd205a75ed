// Package stats reduces raster bands to regional summaries, the local
// counterpart of a reduceRegion call against the imagery service.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/geovine/spectral-cache/internal/raster"
)

// Summary aggregates the valid pixels of one band. Count == 0 means no valid
// pixel existed; the remaining fields are zero in that case.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
	Median float64 `json:"median"`
}

func Summarize(r *raster.Raster, band string) (Summary, error) {
	b, ok := r.Band(band)
	if !ok {
		return Summary{}, fmt.Errorf("stats: band %q not in raster", band)
	}

	vals := make([]float64, 0, len(b.Values))
	for i, v := range b.Values {
		if b.Valid[i] {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return Summary{}, nil
	}

	sort.Float64s(vals)
	s := Summary{
		Count:  len(vals),
		Mean:   stat.Mean(vals, nil),
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Median: stat.Quantile(0.5, stat.Empirical, vals, nil),
	}
	if len(vals) > 1 {
		s.StdDev = stat.StdDev(vals, nil)
	}
	return s, nil
}
