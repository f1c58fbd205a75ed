// Package raster defines the in-memory multi-band raster model shared by the
// index engine and the service pipeline. A raster is populated once during
// construction and treated as read-only afterwards; every derived product is
// a new raster.
package raster

import (
	"fmt"
	"sort"
)

// Extent is the geographic bounding box of a raster (x = lon, y = lat for
// EPSG:4326). It is carried through every computation unchanged.
type Extent struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

func (e Extent) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", e.X1, e.Y1, e.X2, e.Y2, e.SRID)
}

// Band is one named plane of a raster. Values and Valid always have length
// Width*Height of the owning raster; Valid[i] == false marks a nodata pixel.
type Band struct {
	Values []float64
	Valid  []bool
}

type Raster struct {
	Width  int
	Height int
	Extent Extent

	bands map[string]Band
}

func New(width, height int, extent Extent) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid grid %dx%d", width, height)
	}
	return &Raster{
		Width:  width,
		Height: height,
		Extent: extent,
		bands:  make(map[string]Band),
	}, nil
}

// AddBand attaches a named plane. A nil valid slice means every pixel is
// valid. All bands of a raster share the same grid, so the slice lengths must
// equal Width*Height.
func (r *Raster) AddBand(name string, values []float64, valid []bool) error {
	if name == "" {
		return fmt.Errorf("raster: empty band name")
	}
	if _, ok := r.bands[name]; ok {
		return fmt.Errorf("raster: band %q already present", name)
	}
	n := r.Width * r.Height
	if len(values) != n {
		return fmt.Errorf("raster: band %q has %d values, grid needs %d", name, len(values), n)
	}
	if valid == nil {
		valid = make([]bool, n)
		for i := range valid {
			valid[i] = true
		}
	} else if len(valid) != n {
		return fmt.Errorf("raster: band %q has %d mask entries, grid needs %d", name, len(valid), n)
	}
	r.bands[name] = Band{Values: values, Valid: valid}
	return nil
}

func (r *Raster) Band(name string) (Band, bool) {
	b, ok := r.bands[name]
	return b, ok
}

func (r *Raster) HasBand(name string) bool {
	_, ok := r.bands[name]
	return ok
}

// BandNames returns the band names sorted for determinism.
func (r *Raster) BandNames() []string {
	out := make([]string, 0, len(r.bands))
	for name := range r.bands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Size is the pixel count of one band.
func (r *Raster) Size() int { return r.Width * r.Height }

// PixelCenter returns the geographic coordinates of the centre of pixel
// (x, y), with y = 0 at the northern edge.
func (r *Raster) PixelCenter(x, y int) (lon, lat float64) {
	lon = r.Extent.X1 + (float64(x)+0.5)*(r.Extent.X2-r.Extent.X1)/float64(r.Width)
	lat = r.Extent.Y2 - (float64(y)+0.5)*(r.Extent.Y2-r.Extent.Y1)/float64(r.Height)
	return lon, lat
}
