package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/geovine/spectral-cache/internal/cache/prodindex"
	"github.com/geovine/spectral-cache/internal/cache/redisstore"
	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/health"
	"github.com/geovine/spectral-cache/internal/core/httpclient"
	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/core/server"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/invalidation/kafkaconsumer"
	"github.com/geovine/spectral-cache/internal/logger"
	h3mapper "github.com/geovine/spectral-cache/internal/mapper/h3"
	"github.com/geovine/spectral-cache/internal/metrics"
	"github.com/geovine/spectral-cache/internal/modes"
	_ "github.com/geovine/spectral-cache/internal/modes/baseline"
	_ "github.com/geovine/spectral-cache/internal/modes/cached"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// overriding mode via flag
	modeFlag := flag.String("mode", "", "serving mode")
	flag.Parse()

	cfg := config.FromEnv()
	if *modeFlag != "" {
		cfg.Mode = strings.TrimSpace(*modeFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Mode:      cfg.Mode,
		Component: "indexd",
	}, os.Stdout)

	appLog := logger.NewSlog(&zl)

	observability.SetMode(cfg.Mode)
	observability.ExposeBuildInfo(Version)
	appLog.Info("starting indexd",
		"addr", cfg.Addr,
		"version", Version,
		"imagery", cfg.ImageryURL,
		"mode", cfg.Mode)

	imagery, err := retrieval.New(appLog, httpclient.NewOutbound(), cfg.ImageryURL)
	if err != nil {
		appLog.Error("failed to initialize imagery client", "err", err)
		return 1
	}
	var fetch retrieval.Interface = imagery
	if cfg.Preprocess.Enabled {
		fetch = retrieval.NewPreprocessor(fetch, cfg.Preprocess.QABand)
	}

	reg := index.Builtin()
	eng := index.NewEngine(reg)

	handler, err := modes.New(cfg.Mode, cfg, appLog, fetch, eng)
	if err != nil {
		appLog.Error("mode setup failed", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var ready health.ReadinessReporter
	if cfg.Invalidation.Enabled {
		consumer, err := buildConsumer(ctx, cfg, appLog)
		if err != nil {
			appLog.Error("invalidation setup failed", "err", err)
			return 1
		}
		ready = consumer
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLog.Error("invalidation consumer exited", "err", err)
			}
		}()
	}

	if os.Getenv("METRICS_ENABLED") == "true" {
		startMetricsServer(ctx)
	}

	if err := server.Run(ctx, cfg, appLog, handler, fetch, reg, ready); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// buildConsumer wires the kafka invalidation consumer to the same redis
// backing the product cache.
func buildConsumer(ctx context.Context, cfg config.Config, appLog *slog.Logger) (*kafkaconsumer.Consumer, error) {
	rc, err := redisstore.New(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	kc := kafkaconsumer.FromBrokers(cfg.Invalidation.Brokers, cfg.Invalidation.Topic, cfg.Invalidation.GroupID)
	return kafkaconsumer.New(kc, appLog, rc, prodindex.New(rc), h3mapper.New(), nil, cfg.H3Res), nil
}

func startMetricsServer(ctx context.Context) {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9090"
	}
	path := os.Getenv("METRICS_PATH")
	if path == "" {
		path = "/metrics"
	}

	p := metrics.Init(metrics.Config{
		Addr: addr,
		Path: path,
		Build: metrics.BuildInfo{
			Version:  os.Getenv("BUILD_VERSION"),
			Revision: os.Getenv("BUILD_REVISION"),
		},
	})

	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("metrics: listening on %s%s", addr, path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics: shutdown error: %v", err)
		}
	}()
}
