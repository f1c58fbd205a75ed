package raster

import "fmt"

// Landsat Collection 2 Level-2 surface reflectance scale factors.
const (
	LandsatSRScale  = 0.0000275
	LandsatSROffset = -0.2
)

// Landsat QA_PIXEL bit positions used for cloud screening.
const (
	QABitCloud       = 3
	QABitCloudShadow = 4
)

// Rescale returns a copy of r with value*scale+offset applied to the listed
// bands. Other bands are copied unchanged; validity masks are preserved.
func Rescale(r *Raster, bands []string, scale, offset float64) (*Raster, error) {
	target := make(map[string]bool, len(bands))
	for _, name := range bands {
		if !r.HasBand(name) {
			return nil, fmt.Errorf("raster: rescale band %q not in raster", name)
		}
		target[name] = true
	}
	out, err := New(r.Width, r.Height, r.Extent)
	if err != nil {
		return nil, err
	}
	for _, name := range r.BandNames() {
		b := r.bands[name]
		vals := make([]float64, len(b.Values))
		valid := make([]bool, len(b.Valid))
		copy(valid, b.Valid)
		if target[name] {
			for i, v := range b.Values {
				vals[i] = v*scale + offset
			}
		} else {
			copy(vals, b.Values)
		}
		if err := out.AddBand(name, vals, valid); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ApplyBitMask clears the validity of every band wherever any of the given
// bits is set in the QA band, or the QA band itself is invalid. QA values are
// interpreted as unsigned integer codes.
func ApplyBitMask(r *Raster, qaBand string, bits ...uint) (*Raster, error) {
	qa, ok := r.Band(qaBand)
	if !ok {
		return nil, fmt.Errorf("raster: qa band %q not in raster", qaBand)
	}
	var mask uint64
	for _, b := range bits {
		if b > 63 {
			return nil, fmt.Errorf("raster: qa bit %d out of range", b)
		}
		mask |= 1 << b
	}

	n := r.Size()
	drop := make([]bool, n)
	for i := 0; i < n; i++ {
		if !qa.Valid[i] {
			drop[i] = true
			continue
		}
		if uint64(qa.Values[i])&mask != 0 {
			drop[i] = true
		}
	}

	out, err := New(r.Width, r.Height, r.Extent)
	if err != nil {
		return nil, err
	}
	for _, name := range r.BandNames() {
		b := r.bands[name]
		vals := make([]float64, n)
		valid := make([]bool, n)
		copy(vals, b.Values)
		for i := 0; i < n; i++ {
			valid[i] = b.Valid[i] && !drop[i]
		}
		if err := out.AddBand(name, vals, valid); err != nil {
			return nil, err
		}
	}
	return out, nil
}
