package raster

import (
	"math"
	"strings"
	"testing"
)

func TestCodec_RoundTripPreservesGridAndMask(t *testing.T) {
	r, _ := New(2, 2, testExtent)
	if err := r.AddBand("ndvi", []float64{0.1, -0.5, 0.9, 0}, []bool{true, true, false, true}); err != nil {
		t.Fatalf("AddBand: %v", err)
	}

	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Width != 2 || got.Height != 2 || got.Extent != testExtent {
		t.Fatalf("grid mismatch: %dx%d %s", got.Width, got.Height, got.Extent)
	}
	b, ok := got.Band("ndvi")
	if !ok {
		t.Fatal("ndvi band missing after round trip")
	}
	want := []float64{0.1, -0.5, 0, 0}
	wantValid := []bool{true, true, false, true}
	for i := range want {
		if b.Values[i] != want[i] || b.Valid[i] != wantValid[i] {
			t.Fatalf("pixel %d = (%v,%v), want (%v,%v)", i, b.Values[i], b.Valid[i], want[i], wantValid[i])
		}
	}
}

func TestMarshal_SanitizesNonFiniteValues(t *testing.T) {
	r, _ := New(3, 1, testExtent)
	if err := r.AddBand("x", []float64{math.NaN(), math.Inf(1), 1.5}, nil); err != nil {
		t.Fatalf("AddBand: %v", err)
	}

	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "NaN") || strings.Contains(string(data), "Inf") {
		t.Fatalf("non-finite value leaked into wire document: %s", data)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	b, _ := got.Band("x")
	if b.Valid[0] || b.Valid[1] || !b.Valid[2] {
		t.Fatalf("mask = %v, want [false false true]", b.Valid)
	}
	if b.Values[2] != 1.5 {
		t.Fatalf("finite value changed: %v", b.Values[2])
	}
}

func TestMarshal_OmitsMaskWhenAllValid(t *testing.T) {
	r, _ := New(2, 1, testExtent)
	_ = r.AddBand("x", []float64{1, 2}, nil)

	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"valid"`) {
		t.Fatalf("all-valid band carries a mask: %s", data)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	b, _ := got.Band("x")
	if !b.Valid[0] || !b.Valid[1] {
		t.Fatalf("missing mask should mean all valid, got %v", b.Valid)
	}
}

func TestUnmarshal_RejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"width":0,"height":0}`)); err == nil {
		t.Fatal("zero grid accepted")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Fatal("non-JSON accepted")
	}
}
