package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

type staticFetcher struct {
	scene *raster.Raster
	err   error
}

func (f *staticFetcher) FetchScene(context.Context, string) (*raster.Raster, error) {
	return f.scene, f.err
}

func sarScene(t *testing.T) *raster.Raster {
	t.Helper()
	r, err := raster.New(3, 1, raster.Extent{X1: 17.8, Y1: 59.2, X2: 18.2, Y2: 59.5, SRID: "EPSG:4326"})
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	if err := r.AddBand("vv", []float64{-18, -3, -16}, nil); err != nil {
		t.Fatalf("AddBand: %v", err)
	}
	return r
}

func TestParseFloodRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/flood?scene=s1&band=vv&threshold=-15", nil)
	q, err := ParseFloodRequest(r)
	if err != nil {
		t.Fatalf("ParseFloodRequest: %v", err)
	}
	if q.Scene != "s1" || q.Band != "vv" || q.Threshold != -15 {
		t.Fatalf("parsed = %+v", q)
	}
	if q.Op != "lt" || q.Radius != 1 {
		t.Fatalf("defaults = op:%s radius:%d, want lt/1", q.Op, q.Radius)
	}
}

func TestParseFloodRequest_Options(t *testing.T) {
	r := httptest.NewRequest("GET", "/flood?scene=s1&band=vv&threshold=-15&op=ge&radius=0", nil)
	q, err := ParseFloodRequest(r)
	if err != nil {
		t.Fatalf("ParseFloodRequest: %v", err)
	}
	if q.Op != "ge" || q.Radius != 0 {
		t.Fatalf("parsed = %+v", q)
	}
}

func TestParseFloodRequest_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"missing scene", "band=vv&threshold=-15"},
		{"missing band", "scene=s1&threshold=-15"},
		{"missing threshold", "scene=s1&band=vv"},
		{"bad scene", "scene=a/b&band=vv&threshold=-15"},
		{"bad band", "scene=s1&band=v-v&threshold=-15"},
		{"bad threshold", "scene=s1&band=vv&threshold=low"},
		{"bad op", "scene=s1&band=vv&threshold=-15&op=eq"},
		{"radius too large", "scene=s1&band=vv&threshold=-15&radius=8"},
		{"negative radius", "scene=s1&band=vv&threshold=-15&radius=-1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/flood?"+tc.query, nil)
			if _, err := ParseFloodRequest(r); err == nil {
				t.Fatalf("accepted %q", tc.query)
			}
		})
	}
}

func floodGet(t *testing.T, fetch retrieval.Interface, query string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/flood?"+query, nil)
	HandleFlood(nil, fetch)(rec, req)
	return rec
}

func decodeFloodMask(t *testing.T, rec *httptest.ResponseRecorder) []float64 {
	t.Helper()
	var p FloodProduct
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	out, err := raster.Unmarshal(p.Raster)
	if err != nil {
		t.Fatalf("decode raster: %v", err)
	}
	mask, ok := out.Band("mask")
	if !ok {
		t.Fatalf("response bands = %v, no mask", out.BandNames())
	}
	return mask.Values
}

func TestHandleFlood_DespeckleThenThreshold(t *testing.T) {
	fetch := &staticFetcher{scene: sarScene(t)}

	rec := floodGet(t, fetch, "scene=s1&band=vv&threshold=-15")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// radius-1 medians of {-18,-3,-16}: {-10.5,-16,-9.5}; only the middle
	// pixel stays under -15 once the spike is smoothed away
	got := decodeFloodMask(t, rec)
	want := []float64{0, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mask = %v, want %v", got, want)
		}
	}
}

func TestHandleFlood_RadiusZeroSkipsSmoothing(t *testing.T) {
	fetch := &staticFetcher{scene: sarScene(t)}

	rec := floodGet(t, fetch, "scene=s1&band=vv&threshold=-15&radius=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decodeFloodMask(t, rec)
	want := []float64{1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mask = %v, want %v", got, want)
		}
	}
}

func TestHandleFlood_ErrorMapping(t *testing.T) {
	t.Run("unknown scene is 404", func(t *testing.T) {
		fetch := &staticFetcher{err: &retrieval.SceneNotFoundError{ID: "missing"}}
		rec := floodGet(t, fetch, "scene=missing&band=vv&threshold=-15")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rec.Code)
		}
	})
	t.Run("upstream failure is 502", func(t *testing.T) {
		fetch := &staticFetcher{err: errors.New("connection refused")}
		rec := floodGet(t, fetch, "scene=s1&band=vv&threshold=-15")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", rec.Code)
		}
	})
	t.Run("unknown band is 400", func(t *testing.T) {
		fetch := &staticFetcher{scene: sarScene(t)}
		rec := floodGet(t, fetch, "scene=s1&band=hh&threshold=-15")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "hh") {
			t.Fatalf("body does not name the band: %s", rec.Body.String())
		}
	})
}
