package raster

import (
	"fmt"
	"sort"
)

// FocalMedian smooths one band with a square window of the given radius
// (window side = 2*radius+1), the usual despeckle step before thresholding
// SAR backscatter. Invalid neighbours are excluded; a pixel with no valid
// neighbour stays invalid. The result is a single-band raster carrying the
// same band name.
func FocalMedian(r *Raster, band string, radius int) (*Raster, error) {
	b, ok := r.Band(band)
	if !ok {
		return nil, fmt.Errorf("raster: focal band %q not in raster", band)
	}
	if radius < 1 {
		return nil, fmt.Errorf("raster: focal radius %d must be >= 1", radius)
	}

	n := r.Size()
	vals := make([]float64, n)
	valid := make([]bool, n)
	window := make([]float64, 0, (2*radius+1)*(2*radius+1))

	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			window = window[:0]
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= r.Height {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= r.Width {
						continue
					}
					i := yy*r.Width + xx
					if b.Valid[i] {
						window = append(window, b.Values[i])
					}
				}
			}
			if len(window) == 0 {
				continue
			}
			i := y*r.Width + x
			vals[i] = median(window)
			valid[i] = true
		}
	}

	out, err := New(r.Width, r.Height, r.Extent)
	if err != nil {
		return nil, err
	}
	if err := out.AddBand(band, vals, valid); err != nil {
		return nil, err
	}
	return out, nil
}

func median(v []float64) float64 {
	sort.Float64s(v)
	m := len(v) / 2
	if len(v)%2 == 1 {
		return v[m]
	}
	return (v[m-1] + v[m]) / 2
}

// CompareOp selects the comparison used by Threshold.
type CompareOp string

const (
	OpLess         CompareOp = "lt"
	OpLessEqual    CompareOp = "le"
	OpGreater      CompareOp = "gt"
	OpGreaterEqual CompareOp = "ge"
)

// Threshold classifies one band against a constant, producing a binary
// "mask" band: 1 where the comparison holds, 0 where it does not. Invalid
// input pixels stay invalid.
func Threshold(r *Raster, band string, op CompareOp, value float64) (*Raster, error) {
	b, ok := r.Band(band)
	if !ok {
		return nil, fmt.Errorf("raster: threshold band %q not in raster", band)
	}

	n := r.Size()
	vals := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if !b.Valid[i] {
			continue
		}
		var hit bool
		switch op {
		case OpLess:
			hit = b.Values[i] < value
		case OpLessEqual:
			hit = b.Values[i] <= value
		case OpGreater:
			hit = b.Values[i] > value
		case OpGreaterEqual:
			hit = b.Values[i] >= value
		default:
			return nil, fmt.Errorf("raster: unknown compare op %q", op)
		}
		if hit {
			vals[i] = 1
		}
		valid[i] = true
	}

	out, err := New(r.Width, r.Height, r.Extent)
	if err != nil {
		return nil, err
	}
	if err := out.AddBand("mask", vals, valid); err != nil {
		return nil, err
	}
	return out, nil
}
