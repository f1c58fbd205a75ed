package router

import (
	"net/http/httptest"
	"testing"
)

func TestParseComputeRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/compute?scene=LC09_L2SP_192018_20260712&index=NDVI", nil)
	q, err := ParseComputeRequest(r)
	if err != nil {
		t.Fatalf("ParseComputeRequest: %v", err)
	}
	if q.Scene != "LC09_L2SP_192018_20260712" || q.Index != "NDVI" {
		t.Fatalf("parsed = %+v", q)
	}
	if q.Stats || q.ZonalRes != -1 {
		t.Fatalf("defaults = stats:%v zonal:%d, want stats:false zonal:-1", q.Stats, q.ZonalRes)
	}
}

func TestParseComputeRequest_OptionalFlags(t *testing.T) {
	r := httptest.NewRequest("GET", "/compute?scene=s1&index=NDVI&stats=true&zonal=7", nil)
	q, err := ParseComputeRequest(r)
	if err != nil {
		t.Fatalf("ParseComputeRequest: %v", err)
	}
	if !q.Stats || q.ZonalRes != 7 {
		t.Fatalf("parsed = %+v", q)
	}
}

func TestParseComputeRequest_Rejections(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"missing scene", "/compute?index=NDVI"},
		{"missing index", "/compute?scene=s1"},
		{"scene with slash", "/compute?scene=a%2Fb&index=NDVI"},
		{"scene with space", "/compute?scene=a+b&index=NDVI"},
		{"index with dash", "/compute?scene=s1&index=d-NBR"},
		{"overlong index", "/compute?scene=s1&index=AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"bad stats flag", "/compute?scene=s1&index=NDVI&stats=maybe"},
		{"zonal out of range", "/compute?scene=s1&index=NDVI&zonal=16"},
		{"negative zonal", "/compute?scene=s1&index=NDVI&zonal=-1"},
		{"non-numeric zonal", "/compute?scene=s1&index=NDVI&zonal=high"},
	}
	for _, tc := range tests {
		r := httptest.NewRequest("GET", tc.url, nil)
		if _, err := ParseComputeRequest(r); err == nil {
			t.Fatalf("%s: want error", tc.name)
		}
	}
}

func TestParseChangeRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/change?pre=s1&post=s2&index=NBR", nil)
	q, err := ParseChangeRequest(r)
	if err != nil {
		t.Fatalf("ParseChangeRequest: %v", err)
	}
	if q.Pre != "s1" || q.Post != "s2" || q.Index != "NBR" {
		t.Fatalf("parsed = %+v", q)
	}

	for _, url := range []string{
		"/change?post=s2&index=NBR",
		"/change?pre=s1&index=NBR",
		"/change?pre=s1&post=s2",
		"/change?pre=a%2Fb&post=s2&index=NBR",
	} {
		r := httptest.NewRequest("GET", url, nil)
		if _, err := ParseChangeRequest(r); err == nil {
			t.Fatalf("%s: want error", url)
		}
	}
}
