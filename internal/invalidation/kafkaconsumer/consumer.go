// Package kafkaconsumer runs the consumer group that turns imagery events
// into product cache deletions.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/IBM/sarama"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/geovine/spectral-cache/internal/cache"
	"github.com/geovine/spectral-cache/internal/core/model"
	obs "github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/invalidation"
	"github.com/geovine/spectral-cache/internal/raster"
)

// ProductResolver finds cached products by scene and scenes by cell; the
// prodindex package implements it.
type ProductResolver interface {
	KeysForScene(ctx context.Context, scene string) ([]string, error)
	ScenesForCells(ctx context.Context, cells model.Cells) ([]string, error)
	DropScene(ctx context.Context, scene string) error
}

type CellMapper interface {
	CellsForExtent(e raster.Extent, res int) (model.Cells, error)
}

type HotnessResetter interface {
	Reset(scenes ...string)
}

type Consumer struct {
	cfg      Config
	logger   *slog.Logger
	cache    cache.Interface
	products ProductResolver
	mapper   CellMapper
	hot      HotnessResetter
	res      int

	seen *lru.Cache[string, struct{}]

	mu         sync.Mutex
	ready      bool
	partitions []int32
}

func New(cfg Config, logger *slog.Logger, c cache.Interface, products ProductResolver, mapper CellMapper, hot HotnessResetter, res int) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.DedupeSize
	if size <= 0 {
		size = 4096
	}
	seen, _ := lru.New[string, struct{}](size)
	// a concrete nil pointer handed in as the interface would still pass the
	// c.hot != nil check in ProcessOne, so normalize it here
	if hot != nil {
		if v := reflect.ValueOf(hot); v.Kind() == reflect.Pointer && v.IsNil() {
			hot = nil
		}
	}
	return &Consumer{
		cfg:      cfg,
		logger:   logger,
		cache:    c,
		products: products,
		mapper:   mapper,
		hot:      hot,
		res:      res,
		seen:     seen,
	}
}

// Readiness reports whether a consumer group session holds claims.
func (c *Consumer) Readiness() (bool, []int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready, c.partitions
}

func (c *Consumer) setClaims(parts []int32) {
	c.mu.Lock()
	c.ready = true
	c.partitions = parts
	c.mu.Unlock()
}

func (c *Consumer) clearClaims() {
	c.mu.Lock()
	c.ready = false
	c.partitions = nil
	c.mu.Unlock()
}

// Start consumes until ctx is cancelled. Transient consume errors are logged
// and retried with a short backoff.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cache == nil || c.products == nil || c.mapper == nil {
		return errors.New("kafkaconsumer: missing dependencies (cache/products/mapper)")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{
		process: c.ProcessOne,
		onSetup: c.setClaims,
		onStop:  c.clearClaims,
	}

	c.logger.Info("invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.clearClaims()
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne handles one imagery event end to end. Malformed events are
// counted and skipped, never retried; deletion failures are returned so the
// message is redelivered.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncInvalidation("decode_error")
		c.logger.Error("event decode failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncInvalidation("invalid")
		c.logger.Error("event rejected", "id", ev.ID, "err", err)
		return nil
	}
	if _, dup := c.seen.Get(ev.ID); dup {
		obs.IncInvalidation("duplicate")
		return nil
	}

	scenes, err := c.affectedScenes(ctx, ev)
	if err != nil {
		obs.IncInvalidation("resolve_error")
		return fmt.Errorf("resolve scenes for event %s: %w", ev.ID, err)
	}

	dropped := 0
	for _, scene := range scenes {
		keys, err := c.products.KeysForScene(ctx, scene)
		if err != nil {
			obs.IncInvalidation("resolve_error")
			return fmt.Errorf("keys for scene %q: %w", scene, err)
		}
		if len(keys) > 0 {
			if err := c.cache.Del(ctx, keys...); err != nil {
				obs.IncInvalidation("delete_error")
				return fmt.Errorf("delete %d products of scene %q: %w", len(keys), scene, err)
			}
			dropped += len(keys)
		}
		if err := c.products.DropScene(ctx, scene); err != nil {
			obs.IncInvalidation("delete_error")
			return fmt.Errorf("drop scene index %q: %w", scene, err)
		}
		if c.hot != nil {
			c.hot.Reset(scene)
		}
	}

	c.seen.Add(ev.ID, struct{}{})
	obs.IncInvalidation("applied")
	c.logger.Info("invalidation applied",
		"id", ev.ID, "op", ev.Op, "scenes", len(scenes), "products", dropped)
	return nil
}

func (c *Consumer) affectedScenes(ctx context.Context, ev invalidation.Event) ([]string, error) {
	if ev.Scene != "" {
		return []string{ev.Scene}, nil
	}
	cells, err := c.mapper.CellsForExtent(ev.BBox.Extent(), c.res)
	if err != nil {
		return nil, fmt.Errorf("map bbox: %w", err)
	}
	return c.products.ScenesForCells(ctx, cells)
}
