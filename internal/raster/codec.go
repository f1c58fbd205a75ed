package raster

import (
	"encoding/json"
	"fmt"
	"math"
)

// Wire format for cached products and HTTP payloads. Invalid pixels carry a
// zero value so the document never contains NaN/Inf, which encoding/json
// rejects. A missing "valid" array means every pixel is valid.

type wireExtent struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid"`
}

type wireBand struct {
	Values []float64 `json:"values"`
	Valid  []bool    `json:"valid,omitempty"`
}

type wireRaster struct {
	Width  int                 `json:"width"`
	Height int                 `json:"height"`
	Extent wireExtent          `json:"extent"`
	Bands  map[string]wireBand `json:"bands"`
}

func Marshal(r *Raster) ([]byte, error) {
	w := wireRaster{
		Width:  r.Width,
		Height: r.Height,
		Extent: wireExtent{r.Extent.X1, r.Extent.Y1, r.Extent.X2, r.Extent.Y2, r.Extent.SRID},
		Bands:  make(map[string]wireBand, len(r.bands)),
	}
	for _, name := range r.BandNames() {
		b := r.bands[name]
		vals := make([]float64, len(b.Values))
		valid := make([]bool, len(b.Valid))
		allValid := true
		for i, v := range b.Values {
			ok := b.Valid[i] && !math.IsNaN(v) && !math.IsInf(v, 0)
			if ok {
				vals[i] = v
			}
			valid[i] = ok
			if !ok {
				allValid = false
			}
		}
		wb := wireBand{Values: vals}
		if !allValid {
			wb.Valid = valid
		}
		w.Bands[name] = wb
	}
	return json.Marshal(w)
}

func Unmarshal(data []byte) (*Raster, error) {
	var w wireRaster
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("raster decode: %w", err)
	}
	r, err := New(w.Width, w.Height, Extent{w.Extent.X1, w.Extent.Y1, w.Extent.X2, w.Extent.Y2, w.Extent.SRID})
	if err != nil {
		return nil, err
	}
	for name, wb := range w.Bands {
		if err := r.AddBand(name, wb.Values, wb.Valid); err != nil {
			return nil, err
		}
	}
	return r, nil
}
