package integration

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/core/router"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/modes"
	_ "github.com/geovine/spectral-cache/internal/modes/baseline"
	_ "github.com/geovine/spectral-cache/internal/modes/cached"
	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

type staticFetcher struct {
	scenes map[string]*raster.Raster
}

func (f *staticFetcher) FetchScene(_ context.Context, id string) (*raster.Raster, error) {
	r, ok := f.scenes[id]
	if !ok {
		return nil, &retrieval.SceneNotFoundError{ID: id}
	}
	return r, nil
}

func buildScene(t *testing.T) *raster.Raster {
	t.Helper()
	r, err := raster.New(2, 2, raster.Extent{X1: 17.8, Y1: 59.2, X2: 18.2, Y2: 59.5, SRID: "EPSG:4326"})
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	bands := map[string][]float64{
		"red":  {0.1, 0.2, 0, 0.3},
		"nir":  {0.5, 0.4, 0, 0.6},
		"blue": {0.05, 0.05, 0.05, 0.05},
	}
	for name, vals := range bands {
		if err := r.AddBand(name, vals, nil); err != nil {
			t.Fatalf("AddBand(%s): %v", name, err)
		}
	}
	return r
}

func buildHandlers(t *testing.T) (baseline, cached router.ComputeHandler) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.Config{
		RedisAddr:      mr.Addr(),
		H3Res:          6,
		CacheOpTimeout: time.Second,
		CacheTTLCold:   time.Minute,
		CacheTTLWarm:   5 * time.Minute,
		CacheTTLHot:    10 * time.Minute,
		LRUSize:        16,
		HotThreshold:   10,
		HotHalfLife:    time.Minute,
	}
	fetch := &staticFetcher{scenes: map[string]*raster.Raster{"s1": buildScene(t)}}
	eng := index.NewEngine(nil)

	baseline, err = modes.New("baseline", cfg, slog.Default(), fetch, eng)
	if err != nil {
		t.Fatalf("baseline setup: %v", err)
	}
	cached, err = modes.New("cached", cfg, slog.Default(), fetch, eng)
	if err != nil {
		t.Fatalf("cached setup: %v", err)
	}
	return baseline, cached
}

func serve(h router.ComputeHandler, q model.ComputeRequest) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/compute", nil)
	h.HandleCompute(r.Context(), w, r, q)
	return w
}

func Test_Compute_CachedVsBaseline_Identical(t *testing.T) {
	baseline, cached := buildHandlers(t)

	for _, idx := range []string{"NDVI", "EVI"} {
		q := model.ComputeRequest{Scene: "s1", Index: idx, Stats: true, ZonalRes: -1}

		want := serve(baseline, q)
		if want.Code != http.StatusOK {
			t.Fatalf("%s baseline status = %d: %s", idx, want.Code, want.Body.String())
		}

		// cold cache, then warm cache
		for pass := 0; pass < 2; pass++ {
			got := serve(cached, q)
			if got.Code != http.StatusOK {
				t.Fatalf("%s cached pass %d status = %d: %s", idx, pass, got.Code, got.Body.String())
			}
			if got.Body.String() != want.Body.String() {
				t.Fatalf("%s pass %d: cached response differs from baseline:\nbaseline: %s\ncached  : %s",
					idx, pass, want.Body.String(), got.Body.String())
			}
		}
	}
}

func Test_Compute_ErrorParity(t *testing.T) {
	baseline, cached := buildHandlers(t)

	cases := []model.ComputeRequest{
		{Scene: "missing", Index: "NDVI", ZonalRes: -1},
		{Scene: "s1", Index: "UNREGISTERED", ZonalRes: -1},
		{Scene: "s1", Index: "NBR", ZonalRes: -1}, // scene lacks swir2
	}
	for _, q := range cases {
		want := serve(baseline, q)
		got := serve(cached, q)
		if want.Code != got.Code {
			t.Fatalf("%s/%s: baseline %d vs cached %d", q.Scene, q.Index, want.Code, got.Code)
		}
		if want.Code == http.StatusOK {
			t.Fatalf("%s/%s: expected an error case", q.Scene, q.Index)
		}
	}
}
