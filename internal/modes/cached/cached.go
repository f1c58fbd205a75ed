// Package cached serves compute requests through the product cache: LRU in
// front of redis, TTLs picked by scene hotness, and the scene product index
// kept current for invalidation.
package cached

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	cacheiface "github.com/geovine/spectral-cache/internal/cache"
	"github.com/geovine/spectral-cache/internal/cache/keys"
	"github.com/geovine/spectral-cache/internal/cache/memlru"
	"github.com/geovine/spectral-cache/internal/cache/prodindex"
	"github.com/geovine/spectral-cache/internal/cache/redisstore"
	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/core/router"
	"github.com/geovine/spectral-cache/internal/events"
	"github.com/geovine/spectral-cache/internal/hotness"
	"github.com/geovine/spectral-cache/internal/hotness/expdecay"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/logger"
	h3mapper "github.com/geovine/spectral-cache/internal/mapper/h3"
	"github.com/geovine/spectral-cache/internal/modes"
	"github.com/geovine/spectral-cache/internal/raster"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

// productVersion busts every cached product when the engine semantics
// change incompatibly.
const productVersion = "v1"

type Handler struct {
	logger *slog.Logger
	fetch  retrieval.Interface
	eng    *index.Engine
	mapr   *h3mapper.Mapper

	store    cacheiface.Interface
	products *prodindex.Index
	hot      hotness.Interface
	pub      *events.Publisher

	res          int
	opTimeout    time.Duration
	hotThreshold float64
	ttlCold      time.Duration
	ttlWarm      time.Duration
	ttlHot       time.Duration
}

func init() {
	modes.Register("cached", newCached)
}

func newCached(cfg config.Config, log *slog.Logger, fetch retrieval.Interface, eng *index.Engine) (router.ComputeHandler, error) {
	rc, err := redisstore.New(context.Background(), cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	store, err := memlru.New(rc, cfg.LRUSize)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		logger:   log,
		fetch:    fetch,
		eng:      eng,
		mapr:     h3mapper.New(),
		store:    store,
		products: prodindex.New(rc),
		hot:      expdecay.New(cfg.HotHalfLife),

		res:          cfg.H3Res,
		opTimeout:    cfg.CacheOpTimeout,
		hotThreshold: cfg.HotThreshold,
		ttlCold:      cfg.CacheTTLCold,
		ttlWarm:      cfg.CacheTTLWarm,
		ttlHot:       cfg.CacheTTLHot,
	}

	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(log, splitBrokers(cfg.Events.Brokers), cfg.Events.Topic, cfg.Events.Queue)
		if err != nil {
			return nil, err
		}
		h.pub = pub
	}
	return h, nil
}

func (h *Handler) HandleCompute(ctx context.Context, w http.ResponseWriter, _ *http.Request, q model.ComputeRequest) {
	ctx = logger.WithScene(ctx, q.Scene)
	h.hot.Inc(q.Scene)

	key := keys.Product(q.Scene, q.Index, productVersion)

	if out, ok := h.lookup(ctx, key); ok {
		observability.IncCacheHit()
		w.Header().Set("X-Cache", "hit")
		h.publish(q.Scene, q.Index, out.Size(), true)
		h.respond(ctx, w, h.mapr, out, q)
		return
	}
	observability.IncCacheMiss()
	w.Header().Set("X-Cache", "miss")

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

	h.fill(ctx, key, out, []string{q.Scene})
	h.publish(q.Scene, q.Index, out.Size(), false)
	h.respond(ctx, w, h.mapr, out, q)
}

func (h *Handler) HandleChange(ctx context.Context, w http.ResponseWriter, _ *http.Request, q model.ChangeRequest) {
	h.hot.Inc(q.Post)

	key := keys.Product(q.Post, "d"+q.Index, productVersion+":pre="+q.Pre)

	if out, ok := h.lookup(ctx, key); ok {
		observability.IncCacheHit()
		w.Header().Set("X-Cache", "hit")
		h.respondChange(w, out, q)
		return
	}
	observability.IncCacheMiss()
	w.Header().Set("X-Cache", "miss")

	pre, err := h.fetch.FetchScene(ctx, q.Pre)
	if err != nil {
		modes.WriteError(w, err)
		return
	}
	post, err := h.fetch.FetchScene(ctx, q.Post)
	if err != nil {
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

	// a change product derives from both acquisitions
	h.fill(ctx, key, out, []string{q.Pre, q.Post})
	h.respondChange(w, out, q)
}

// lookup returns the decoded cached product, if any. Cache failures degrade
// to a miss; the request is still served from the engine.
func (h *Handler) lookup(ctx context.Context, key string) (*raster.Raster, bool) {
	opCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	data, ok, err := h.store.Get(opCtx, key)
	if err != nil {
		h.logger.WarnContext(ctx, "cache get failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	out, err := raster.Unmarshal(data)
	if err != nil {
		h.logger.WarnContext(ctx, "cached product corrupt; dropping", "key", key, "err", err)
		_ = h.store.Del(opCtx, key)
		return nil, false
	}
	return out, true
}

// fill stores a freshly computed product and registers it in the scene
// product index. Failures are logged and ignored; the response was computed
// either way.
func (h *Handler) fill(ctx context.Context, key string, out *raster.Raster, scenes []string) {
	data, err := raster.Marshal(out)
	if err != nil {
		h.logger.WarnContext(ctx, "product encode failed", "key", key, "err", err)
		return
	}

	opCtx, cancel := h.withTimeout(ctx)
	defer cancel()

	ttl := h.ttlFor(scenes[0])
	if err := h.store.Set(opCtx, key, data, ttl); err != nil {
		h.logger.WarnContext(ctx, "cache fill failed", "key", key, "err", err)
		return
	}

	cells, err := h.mapr.CellsForExtent(out.Extent, h.res)
	if err != nil {
		h.logger.WarnContext(ctx, "extent mapping failed", "key", key, "err", err)
		cells = nil
	}
	if err := h.products.Add(opCtx, key, scenes, cells); err != nil {
		h.logger.WarnContext(ctx, "product index update failed", "key", key, "err", err)
	}
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, mapr *h3mapper.Mapper, out *raster.Raster, q model.ComputeRequest) {
	p, err := modes.BuildProduct(mapr, out, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "product assembly failed", "err", err)
		modes.WriteError(w, err)
		return
	}
	modes.WriteProduct(w, p)
}

func (h *Handler) respondChange(w http.ResponseWriter, out *raster.Raster, q model.ChangeRequest) {
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

func (h *Handler) ttlFor(scene string) time.Duration {
	switch hotness.Classify(h.hot.Score(scene), h.hotThreshold) {
	case hotness.Hot:
		return h.ttlHot
	case hotness.Warm:
		return h.ttlWarm
	default:
		return h.ttlCold
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.opTimeout)
}

func (h *Handler) publish(scene, idx string, pixels int, hit bool) {
	if h.pub == nil {
		return
	}
	h.pub.Publish(events.Event{
		Scene:    scene,
		Index:    idx,
		Pixels:   pixels,
		CacheHit: hit,
		TS:       time.Now().UTC(),
	})
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		out = []string{"localhost:9092"}
	}
	return out
}
