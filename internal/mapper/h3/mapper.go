// Package h3mapper maps raster extents and pixel centres onto H3 cells. It
// backs extent-based cache invalidation and zonal statistics.
package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/mapper"
	"github.com/geovine/spectral-cache/internal/raster"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

// CellsForExtent polyfills the extent's bounding box (EPSG:4326, degrees)
// and returns the unique covering cells sorted for determinism.
func (m *Mapper) CellsForExtent(e raster.Extent, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if err := validateExtent(e); err != nil {
		return nil, err
	}

	outer := h3.GeoLoop{
		{Lat: e.Y1, Lng: e.X1},
		{Lat: e.Y1, Lng: e.X2},
		{Lat: e.Y2, Lng: e.X2},
		{Lat: e.Y2, Lng: e.X1},
	}
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	seen := make(map[string]struct{}, len(cells))
	out := make(model.Cells, 0, len(cells))
	for _, c := range cells {
		s := c.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Mapper) CellForPoint(lat, lng float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lng}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell for (%.6f, %.6f): %w", lat, lng, err)
	}
	return c.String(), nil
}

// ZonalMean aggregates one band of a geographic raster into per-cell means
// at the given resolution. Only valid pixels contribute; cells with no valid
// pixel are absent from the result.
func (m *Mapper) ZonalMean(r *raster.Raster, band string, res int) (map[string]float64, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if err := validateExtent(r.Extent); err != nil {
		return nil, err
	}
	b, ok := r.Band(band)
	if !ok {
		return nil, fmt.Errorf("zonal: band %q not in raster", band)
	}

	type acc struct {
		sum float64
		n   int
	}
	cells := make(map[string]*acc)

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			i := y*r.Width + x
			if !b.Valid[i] {
				continue
			}
			lon, lat := r.PixelCenter(x, y)
			c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
			if err != nil {
				return nil, fmt.Errorf("h3 cell for pixel (%d,%d): %w", x, y, err)
			}
			s := c.String()
			a := cells[s]
			if a == nil {
				a = &acc{}
				cells[s] = a
			}
			a.sum += b.Values[i]
			a.n++
		}
	}

	out := make(map[string]float64, len(cells))
	for s, a := range cells {
		out[s] = a.sum / float64(a.n)
	}
	return out, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func validateExtent(e raster.Extent) error {
	if e.SRID != "" && e.SRID != "EPSG:4326" {
		return fmt.Errorf("extent SRID %q is not EPSG:4326", e.SRID)
	}
	if !(e.X1 >= -180 && e.X2 <= 180 && e.Y1 >= -90 && e.Y2 <= 90) {
		return errors.New("extent out of geographic range")
	}
	if !(e.X2 > e.X1 && e.Y2 > e.Y1) {
		return errors.New("extent must satisfy x2>x1 and y2>y1")
	}
	return nil
}
