package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

// FloodProduct is the response document of /flood.
type FloodProduct struct {
	Scene     string          `json:"scene"`
	Band      string          `json:"band"`
	Op        string          `json:"op"`
	Threshold float64         `json:"threshold"`
	Raster    json.RawMessage `json:"raster"`
}

// HandleFlood serves the SAR water-mask pipeline: fetch the scene, smooth
// the backscatter band with a focal median, then threshold it into a binary
// mask band. Always computed fresh; flood requests are one-off by nature.
func HandleFlood(logger *slog.Logger, fetch retrieval.Interface) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseFloodRequest(r)
		if err != nil {
			logger.Debug("flood request rejected", "err", err)
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/flood", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		scene, err := fetch.FetchScene(r.Context(), q.Scene)
		if err != nil {
			logger.Error("scene fetch failed", "scene", q.Scene, "err", err)
			var notFound *retrieval.SceneNotFoundError
			if errors.As(err, &notFound) {
				http.Error(sw, err.Error(), http.StatusNotFound)
			} else {
				http.Error(sw, err.Error(), http.StatusBadGateway)
			}
			observability.ObserveHTTP(r.Method, "/flood", sw.code, time.Since(start).Seconds())
			return
		}

		out := scene
		if q.Radius > 0 {
			out, err = raster.FocalMedian(out, q.Band, q.Radius)
			if err != nil {
				http.Error(sw, err.Error(), http.StatusBadRequest)
				observability.ObserveHTTP(r.Method, "/flood", sw.code, time.Since(start).Seconds())
				return
			}
		}
		out, err = raster.Threshold(out, q.Band, raster.CompareOp(q.Op), q.Threshold)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/flood", sw.code, time.Since(start).Seconds())
			return
		}
		observability.ObserveCompute("FLOOD", out.Size(), time.Since(start).Seconds())

		data, err := raster.Marshal(out)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusInternalServerError)
			observability.ObserveHTTP(r.Method, "/flood", sw.code, time.Since(start).Seconds())
			return
		}
		sw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(sw).Encode(FloodProduct{
			Scene:     q.Scene,
			Band:      q.Band,
			Op:        q.Op,
			Threshold: q.Threshold,
			Raster:    data,
		})
		observability.ObserveHTTP(r.Method, "/flood", sw.code, time.Since(start).Seconds())
	}
}

func ParseFloodRequest(r *http.Request) (model.FloodRequest, error) {
	scene := strings.TrimSpace(r.URL.Query().Get("scene"))
	if scene == "" {
		return model.FloodRequest{}, errors.New("missing required parameter: scene")
	}
	if !sceneRe.MatchString(scene) {
		return model.FloodRequest{}, fmt.Errorf("invalid scene id %q", scene)
	}

	band := strings.TrimSpace(r.URL.Query().Get("band"))
	if band == "" {
		return model.FloodRequest{}, errors.New("missing required parameter: band")
	}
	if !indexRe.MatchString(band) {
		return model.FloodRequest{}, fmt.Errorf("invalid band name %q", band)
	}

	tv := strings.TrimSpace(r.URL.Query().Get("threshold"))
	if tv == "" {
		return model.FloodRequest{}, errors.New("missing required parameter: threshold")
	}
	threshold, err := strconv.ParseFloat(tv, 64)
	if err != nil {
		return model.FloodRequest{}, fmt.Errorf("invalid threshold %q", tv)
	}

	q := model.FloodRequest{Scene: scene, Band: band, Op: "lt", Threshold: threshold, Radius: 1}

	if v := strings.TrimSpace(r.URL.Query().Get("op")); v != "" {
		switch raster.CompareOp(v) {
		case raster.OpLess, raster.OpLessEqual, raster.OpGreater, raster.OpGreaterEqual:
			q.Op = v
		default:
			return model.FloodRequest{}, fmt.Errorf("invalid compare op %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("radius")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 7 {
			return model.FloodRequest{}, fmt.Errorf("invalid despeckle radius %q", v)
		}
		q.Radius = n
	}
	return q, nil
}
