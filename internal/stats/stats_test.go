package stats

import (
	"math"
	"testing"

	"github.com/geovine/spectral-cache/internal/raster"
)

func band(t *testing.T, vals []float64, valid []bool) *raster.Raster {
	t.Helper()
	r, err := raster.New(len(vals), 1, raster.Extent{X1: 0, Y1: 0, X2: 1, Y2: 1, SRID: "EPSG:4326"})
	if err != nil {
		t.Fatalf("raster.New: %v", err)
	}
	if err := r.AddBand("x", vals, valid); err != nil {
		t.Fatalf("AddBand: %v", err)
	}
	return r
}

func TestSummarize_HandComputed(t *testing.T) {
	r := band(t, []float64{0.2, 0.4, 0.6, 0.8}, nil)

	s, err := Summarize(r, "x")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Count != 4 {
		t.Fatalf("Count = %d, want 4", s.Count)
	}
	if math.Abs(s.Mean-0.5) > 1e-12 {
		t.Fatalf("Mean = %v, want 0.5", s.Mean)
	}
	if s.Min != 0.2 || s.Max != 0.8 {
		t.Fatalf("Min/Max = %v/%v, want 0.2/0.8", s.Min, s.Max)
	}
	// sample stddev of {0.2,0.4,0.6,0.8}
	want := math.Sqrt((0.09 + 0.01 + 0.01 + 0.09) / 3)
	if math.Abs(s.StdDev-want) > 1e-12 {
		t.Fatalf("StdDev = %v, want %v", s.StdDev, want)
	}
}

func TestSummarize_SkipsInvalidPixels(t *testing.T) {
	r := band(t, []float64{1, 100, 3}, []bool{true, false, true})

	s, err := Summarize(r, "x")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Count != 2 || s.Max != 3 {
		t.Fatalf("Summary = %+v, masked pixel leaked in", s)
	}
	if s.Mean != 2 {
		t.Fatalf("Mean = %v, want 2", s.Mean)
	}
}

func TestSummarize_NoValidPixels(t *testing.T) {
	r := band(t, []float64{1, 2}, []bool{false, false})

	s, err := Summarize(r, "x")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Count != 0 || s.Mean != 0 || s.StdDev != 0 {
		t.Fatalf("empty summary = %+v, want zero value", s)
	}
}

func TestSummarize_SinglePixelHasZeroStdDev(t *testing.T) {
	r := band(t, []float64{0.7}, nil)

	s, err := Summarize(r, "x")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Count != 1 || s.StdDev != 0 || s.Median != 0.7 {
		t.Fatalf("Summary = %+v", s)
	}
}

func TestSummarize_MissingBand(t *testing.T) {
	r := band(t, []float64{1}, nil)
	if _, err := Summarize(r, "missing"); err == nil {
		t.Fatal("want error for missing band")
	}
}
