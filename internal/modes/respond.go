package modes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/index"
	h3mapper "github.com/geovine/spectral-cache/internal/mapper/h3"
	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
	"github.com/geovine/spectral-cache/internal/stats"
)

// Product is the response document of /compute and /change.
type Product struct {
	Scene  string             `json:"scene,omitempty"`
	Pre    string             `json:"pre,omitempty"`
	Post   string             `json:"post,omitempty"`
	Index  string             `json:"index"`
	Raster json.RawMessage    `json:"raster"`
	Stats  *stats.Summary     `json:"stats,omitempty"`
	Zonal  map[string]float64 `json:"zonal,omitempty"`
}

// BuildProduct encodes a computed raster and attaches the optional summary
// and zonal aggregates the request asked for.
func BuildProduct(mapr *h3mapper.Mapper, out *raster.Raster, q model.ComputeRequest) (Product, error) {
	data, err := raster.Marshal(out)
	if err != nil {
		return Product{}, err
	}
	p := Product{Scene: q.Scene, Index: q.Index, Raster: data}

	if q.Stats {
		s, err := stats.Summarize(out, q.Index)
		if err != nil {
			return Product{}, err
		}
		p.Stats = &s
	}
	if q.ZonalRes >= 0 {
		z, err := mapr.ZonalMean(out, q.Index, q.ZonalRes)
		if err != nil {
			return Product{}, err
		}
		p.Zonal = z
	}
	return p, nil
}

func WriteProduct(w http.ResponseWriter, p Product) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError maps the engine and retrieval error taxonomy onto HTTP status
// codes. Unknown index and missing band are caller mistakes; a missing scene
// is a 404; anything else is an upstream or internal failure.
func WriteError(w http.ResponseWriter, err error) {
	var (
		unknownIdx  *index.UnknownIndexError
		missingBand *index.MissingBandError
		shape       *index.ShapeMismatchError
		notFound    *retrieval.SceneNotFoundError
		badFormula  *index.InvalidFormulaError
	)
	switch {
	case errors.As(err, &unknownIdx), errors.As(err, &missingBand), errors.As(err, &shape):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &badFormula):
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
