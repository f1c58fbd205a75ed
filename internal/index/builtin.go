package index

// Built-in formula catalog. Band roles refer to surface reflectance after
// sensor scaling (Landsat 8/9 OLI: blue=SR_B2, green=SR_B3, red=SR_B4,
// nir=SR_B5, swir1=SR_B6, swir2=SR_B7).
//
//	NDVI   (nir-red)/(nir+red)        vegetation health
//	EVI    2.5*(nir-red)/(nir+6*red-7.5*blue+1)
//	NDBI   (swir1-nir)/(swir1+nir)    built-up areas
//	NDWI   (green-nir)/(green+nir)    water content
//	MNDWI  (green-swir1)/(green+swir1) open water
//	NBR    (nir-swir2)/(nir+swir2)    burn ratio

func normDiff(a, b float64) float64 {
	return SafeDiv(a-b, a+b)
}

var unitRange = Range{Min: -1, Max: 1}

func builtins() []Definition {
	return []Definition{
		{
			Name:  "NDVI",
			Bands: []string{"nir", "red"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return normDiff(v["nir"], v["red"])
			},
		},
		{
			Name:  "EVI",
			Bands: []string{"nir", "red", "blue"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return 2.5 * SafeDiv(v["nir"]-v["red"], v["nir"]+6*v["red"]-7.5*v["blue"]+1)
			},
		},
		{
			Name:  "NDBI",
			Bands: []string{"swir1", "nir"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return normDiff(v["swir1"], v["nir"])
			},
		},
		{
			Name:  "NDWI",
			Bands: []string{"green", "nir"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return normDiff(v["green"], v["nir"])
			},
		},
		{
			Name:  "MNDWI",
			Bands: []string{"green", "swir1"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return normDiff(v["green"], v["swir1"])
			},
		},
		{
			Name:  "NBR",
			Bands: []string{"nir", "swir2"},
			Range: &unitRange,
			Fn: func(v Values) float64 {
				return normDiff(v["nir"], v["swir2"])
			},
		},
	}
}

// Builtin returns a fresh registry pre-loaded with the formula catalog.
// Callers may register custom indices before the first Resolve.
func Builtin() *Registry {
	g := NewRegistry()
	for _, def := range builtins() {
		if err := g.Register(def); err != nil {
			panic(err) // catalog is static; a failure here is a programming error
		}
	}
	return g
}
