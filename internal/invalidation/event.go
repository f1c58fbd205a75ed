// Package invalidation defines the imagery event schema that drives product
// cache invalidation.
package invalidation

import (
	"fmt"
	"strings"
	"time"

	"github.com/geovine/spectral-cache/internal/raster"
)

// Event announces a change in the imagery archive. Exactly one of Scene or
// BBox identifies the affected area: a scene id invalidates that scene's
// products directly, a bbox invalidates every scene whose extent overlaps.
type Event struct {
	Version int       `json:"version"`
	ID      string    `json:"id"`
	Op      string    `json:"op"`
	Scene   string    `json:"scene,omitempty"`
	TS      time.Time `json:"ts"`
	BBox    *BBox     `json:"bbox,omitempty"`
}

type BBox struct {
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	X2   float64 `json:"x2"`
	Y2   float64 `json:"y2"`
	SRID string  `json:"srid"`
}

// Extent converts the event bbox into the raster extent type the mapper
// expects.
func (b BBox) Extent() raster.Extent {
	return raster.Extent{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2, SRID: b.SRID}
}

func (e Event) Validate() error {
	if e.Version != 1 {
		return fmt.Errorf("version must be 1")
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	switch e.Op {
	case "new_acquisition", "reprocessed", "retracted":
	default:
		return fmt.Errorf("op must be new_acquisition|reprocessed|retracted")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	hasScene := strings.TrimSpace(e.Scene) != ""
	hasBBox := e.BBox != nil
	if hasScene == hasBBox {
		return fmt.Errorf("exactly one of scene or bbox is required")
	}
	if hasBBox {
		bb := *e.BBox
		if bb.SRID != "EPSG:4326" {
			return fmt.Errorf("bbox.srid must be EPSG:4326")
		}
		if !(bb.X1 >= -180 && bb.X1 <= 180 && bb.X2 >= -180 && bb.X2 <= 180) {
			return fmt.Errorf("bbox longitude out of range")
		}
		if !(bb.Y1 >= -90 && bb.Y1 <= 90 && bb.Y2 >= -90 && bb.Y2 <= 90) {
			return fmt.Errorf("bbox latitude out of range")
		}
		if !(bb.X2 > bb.X1 && bb.Y2 > bb.Y1) {
			return fmt.Errorf("bbox must satisfy x2>x1 and y2>y1")
		}
	}
	return nil
}
