package index

import (
	"fmt"
	"math"

	"github.com/geovine/spectral-cache/internal/raster"
)

// Engine evaluates registered definitions against rasters. It holds no
// mutable state beyond the registry, so one engine may serve any number of
// concurrent callers.
type Engine struct {
	reg *Registry
}

func NewEngine(reg *Registry) *Engine {
	if reg == nil {
		reg = Builtin()
	}
	return &Engine{reg: reg}
}

func (e *Engine) Registry() *Registry { return e.reg }

// Compute evaluates the named index over every pixel of r. The output is a
// new single-band raster named after the index, with the input extent and a
// validity mask equal to (input validity AND formula-defined). Either a
// complete raster or an error is returned, never a partial result.
func (e *Engine) Compute(r *raster.Raster, name string) (*raster.Raster, error) {
	def, err := e.reg.Resolve(name)
	if err != nil {
		return nil, err
	}

	planes := make([]raster.Band, len(def.Bands))
	for i, role := range def.Bands {
		b, ok := r.Band(role)
		if !ok {
			return nil, &MissingBandError{Index: def.Name, Role: role}
		}
		planes[i] = b
	}

	n := r.Size()
	vals := make([]float64, n)
	valid := make([]bool, n)

	if err := e.evaluate(def, planes, vals, valid); err != nil {
		return nil, err
	}

	out, err := raster.New(r.Width, r.Height, r.Extent)
	if err != nil {
		return nil, err
	}
	if err := out.AddBand(def.Name, vals, valid); err != nil {
		return nil, err
	}
	return out, nil
}

// evaluate runs the formula over every jointly valid pixel. A panicking
// formula is a defect in the registered definition, surfaced as
// InvalidFormulaError for the whole call.
func (e *Engine) evaluate(def Definition, planes []raster.Band, vals []float64, valid []bool) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &InvalidFormulaError{Index: def.Name, Reason: fmt.Sprint(rec)}
		}
	}()

	px := make(Values, len(def.Bands))
	for i := range vals {
		ok := true
		for j, role := range def.Bands {
			if !planes[j].Valid[i] {
				ok = false
				break
			}
			px[role] = planes[j].Values[i]
		}
		if !ok {
			continue
		}

		v := def.Fn(px)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// division-safety: undefined result stays masked
			continue
		}
		if def.Range != nil {
			v = clamp(v, def.Range.Min, def.Range.Max)
		}
		vals[i] = v
		valid[i] = true
	}
	return nil
}

// ComputeComposite computes the base index on each acquisition and returns
// the pixel-wise difference post - pre, the change-detection convention
// behind dNBR. The output band is named "d"+index. Pixels valid in only one
// input are invalid in the result. The difference is not clipped to the base
// index range.
func (e *Engine) ComputeComposite(pre, post *raster.Raster, name string) (*raster.Raster, error) {
	if pre.Width != post.Width || pre.Height != post.Height || pre.Extent != post.Extent {
		return nil, &ShapeMismatchError{
			Pre:  fmt.Sprintf("%dx%d %s", pre.Width, pre.Height, pre.Extent),
			Post: fmt.Sprintf("%dx%d %s", post.Width, post.Height, post.Extent),
		}
	}

	a, err := e.Compute(pre, name)
	if err != nil {
		return nil, err
	}
	b, err := e.Compute(post, name)
	if err != nil {
		return nil, err
	}

	ba, _ := a.Band(name)
	bb, _ := b.Band(name)

	n := pre.Size()
	vals := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		if ba.Valid[i] && bb.Valid[i] {
			vals[i] = bb.Values[i] - ba.Values[i]
			valid[i] = true
		}
	}

	out, err := raster.New(pre.Width, pre.Height, pre.Extent)
	if err != nil {
		return nil, err
	}
	if err := out.AddBand("d"+name, vals, valid); err != nil {
		return nil, err
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
