package retrieval

import (
	"context"
	"fmt"

	"github.com/geovine/spectral-cache/internal/raster"
)

// Preprocessor decorates scene fetches with Landsat Collection 2 surface
// reflectance scaling and QA_PIXEL cloud screening, so every mode computes
// on physical reflectance with cloudy pixels already masked out.
type Preprocessor struct {
	inner  Interface
	qaBand string
}

var _ Interface = (*Preprocessor)(nil)

func NewPreprocessor(inner Interface, qaBand string) *Preprocessor {
	if qaBand == "" {
		qaBand = "qa_pixel"
	}
	return &Preprocessor{inner: inner, qaBand: qaBand}
}

func (p *Preprocessor) FetchScene(ctx context.Context, id string) (*raster.Raster, error) {
	r, err := p.inner.FetchScene(ctx, id)
	if err != nil {
		return nil, err
	}

	// every band except QA carries raw DN codes; QA keeps its bit flags
	sr := make([]string, 0, len(r.BandNames()))
	for _, name := range r.BandNames() {
		if name != p.qaBand {
			sr = append(sr, name)
		}
	}
	if len(sr) > 0 {
		r, err = raster.Rescale(r, sr, raster.LandsatSRScale, raster.LandsatSROffset)
		if err != nil {
			return nil, fmt.Errorf("retrieval: rescale scene %q: %w", id, err)
		}
	}
	if r.HasBand(p.qaBand) {
		r, err = raster.ApplyBitMask(r, p.qaBand, raster.QABitCloud, raster.QABitCloudShadow)
		if err != nil {
			return nil, fmt.Errorf("retrieval: qa mask scene %q: %w", id, err)
		}
	}
	return r, nil
}
