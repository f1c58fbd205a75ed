// Package baseline serves every request by fetching the scene and running
// the index engine, with no caching. It is both the fallback mode and the
// reference behaviour the cached mode must reproduce.
package baseline

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/core/router"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/logger"
	h3mapper "github.com/geovine/spectral-cache/internal/mapper/h3"
	"github.com/geovine/spectral-cache/internal/modes"
	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

type Handler struct {
	logger *slog.Logger
	fetch  retrieval.Interface
	eng    *index.Engine
	mapr   *h3mapper.Mapper
}

func init() {
	modes.Register("baseline", newBaseline)
}

func newBaseline(_ config.Config, log *slog.Logger, fetch retrieval.Interface, eng *index.Engine) (router.ComputeHandler, error) {
	return &Handler{
		logger: log,
		fetch:  fetch,
		eng:    eng,
		mapr:   h3mapper.New(),
	}, nil
}

func (h *Handler) HandleCompute(ctx context.Context, w http.ResponseWriter, _ *http.Request, q model.ComputeRequest) {
	ctx = logger.WithScene(ctx, q.Scene)

	scene, err := h.fetch.FetchScene(ctx, q.Scene)
	if err != nil {
		h.logger.ErrorContext(ctx, "scene fetch failed", "scene", q.Scene, "err", err)
		modes.WriteError(w, err)
		return
	}

	start := time.Now()
	out, err := h.eng.Compute(scene, q.Index)
	if err != nil {
		h.logger.ErrorContext(ctx, "compute failed", "scene", q.Scene, "index", q.Index, "err", err)
		modes.WriteError(w, err)
		return
	}
	observability.ObserveCompute(q.Index, out.Size(), time.Since(start).Seconds())

	p, err := modes.BuildProduct(h.mapr, out, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "product assembly failed", "err", err)
		modes.WriteError(w, err)
		return
	}
	modes.WriteProduct(w, p)
}

func (h *Handler) HandleChange(ctx context.Context, w http.ResponseWriter, _ *http.Request, q model.ChangeRequest) {
	pre, err := h.fetch.FetchScene(ctx, q.Pre)
	if err != nil {
		h.logger.ErrorContext(ctx, "scene fetch failed", "scene", q.Pre, "err", err)
		modes.WriteError(w, err)
		return
	}
	post, err := h.fetch.FetchScene(ctx, q.Post)
	if err != nil {
		h.logger.ErrorContext(ctx, "scene fetch failed", "scene", q.Post, "err", err)
		modes.WriteError(w, err)
		return
	}

	start := time.Now()
	out, err := h.eng.ComputeComposite(pre, post, q.Index)
	if err != nil {
		h.logger.ErrorContext(ctx, "composite failed", "pre", q.Pre, "post", q.Post, "index", q.Index, "err", err)
		modes.WriteError(w, err)
		return
	}
	observability.ObserveCompute("d"+q.Index, out.Size(), time.Since(start).Seconds())

	data, err := raster.Marshal(out)
	if err != nil {
		modes.WriteError(w, err)
		return
	}
	modes.WriteProduct(w, modes.Product{
		Pre:    q.Pre,
		Post:   q.Post,
		Index:  "d" + q.Index,
		Raster: data,
	})
}
