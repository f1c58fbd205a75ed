// Package modes selects how compute requests are served: straight through
// to the engine, or through the product cache.
package modes

import (
	"fmt"
	"log/slog"

	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/router"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

type Factory func(cfg config.Config, logger *slog.Logger, fetch retrieval.Interface, eng *index.Engine) (router.ComputeHandler, error)

var reg = map[string]Factory{}

func Register(name string, f Factory) {
	reg[name] = f
}

func New(name string, cfg config.Config, logger *slog.Logger, fetch retrieval.Interface, eng *index.Engine) (router.ComputeHandler, error) {
	if f, ok := reg[name]; ok {
		return f(cfg, logger, fetch, eng)
	}
	if f, ok := reg["baseline"]; ok {
		logger.Warn("unknown mode; falling back to baseline", "mode", name)
		return f(cfg, logger, fetch, eng)
	}
	return nil, fmt.Errorf("no factory for mode %q and no baseline registered", name)
}
