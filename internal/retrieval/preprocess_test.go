package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/geovine/spectral-cache/internal/raster"
)

type fakeFetcher struct {
	scene *raster.Raster
	err   error
}

func (f *fakeFetcher) FetchScene(context.Context, string) (*raster.Raster, error) {
	return f.scene, f.err
}

func srScene(t *testing.T, withQA bool) *raster.Raster {
	t.Helper()
	r, err := raster.New(2, 1, raster.Extent{X1: 17.8, Y1: 59.2, X2: 18.2, Y2: 59.5, SRID: "EPSG:4326"})
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	if err := r.AddBand("nir", []float64{20000, 30000}, nil); err != nil {
		t.Fatalf("AddBand: %v", err)
	}
	if err := r.AddBand("red", []float64{10000, 15000}, nil); err != nil {
		t.Fatalf("AddBand: %v", err)
	}
	if withQA {
		// pixel 1 carries the cloud bit
		if err := r.AddBand("qa_pixel", []float64{0, 1 << raster.QABitCloud}, nil); err != nil {
			t.Fatalf("AddBand: %v", err)
		}
	}
	return r
}

func TestPreprocessor_RescalesReflectanceAndMasksClouds(t *testing.T) {
	p := NewPreprocessor(&fakeFetcher{scene: srScene(t, true)}, "qa_pixel")

	r, err := p.FetchScene(context.Background(), "s1")
	if err != nil {
		t.Fatalf("FetchScene: %v", err)
	}

	nir, _ := r.Band("nir")
	want := 20000*raster.LandsatSRScale + raster.LandsatSROffset
	if math.Abs(nir.Values[0]-want) > 1e-12 {
		t.Fatalf("nir[0] = %v, want %v", nir.Values[0], want)
	}
	if !nir.Valid[0] {
		t.Fatal("clear pixel lost its validity")
	}
	if nir.Valid[1] {
		t.Fatal("cloudy pixel still valid in nir")
	}
	red, _ := r.Band("red")
	if red.Valid[1] {
		t.Fatal("cloudy pixel still valid in red")
	}

	// QA codes must not be rescaled, or the bit test above would be meaningless
	qa, _ := r.Band("qa_pixel")
	if qa.Values[1] != float64(1<<raster.QABitCloud) {
		t.Fatalf("qa[1] = %v, rescaled", qa.Values[1])
	}
}

func TestPreprocessor_NoQABandSkipsMasking(t *testing.T) {
	p := NewPreprocessor(&fakeFetcher{scene: srScene(t, false)}, "qa_pixel")

	r, err := p.FetchScene(context.Background(), "s1")
	if err != nil {
		t.Fatalf("FetchScene: %v", err)
	}
	nir, _ := r.Band("nir")
	if !nir.Valid[0] || !nir.Valid[1] {
		t.Fatalf("validity changed without a QA band: %v", nir.Valid)
	}
	want := 30000*raster.LandsatSRScale + raster.LandsatSROffset
	if math.Abs(nir.Values[1]-want) > 1e-12 {
		t.Fatalf("nir[1] = %v, want %v", nir.Values[1], want)
	}
}

func TestPreprocessor_FetchErrorsPassThrough(t *testing.T) {
	p := NewPreprocessor(&fakeFetcher{err: &SceneNotFoundError{ID: "missing"}}, "")

	_, err := p.FetchScene(context.Background(), "missing")
	var notFound *SceneNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("want SceneNotFoundError, got %v", err)
	}
}
