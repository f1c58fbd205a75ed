// Package mapper converts between geographic extents and H3 cells.
package mapper

import (
	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/raster"
)

type Interface interface {
	CellsForExtent(e raster.Extent, res int) (model.Cells, error)
	CellForPoint(lat, lng float64, res int) (string, error)
}
