// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type InvalidationCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type PreprocessCfg struct {
	Enabled bool
	QABand  string
}

type EventsCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	Queue   int
}

type Config struct {
	Addr       string
	LogLevel   string
	Mode       string
	ImageryURL string
	RedisAddr  string

	H3Res int

	CacheOpTimeout time.Duration
	CacheTTLCold   time.Duration
	CacheTTLWarm   time.Duration
	CacheTTLHot    time.Duration
	LRUSize        int

	HotThreshold float64
	HotHalfLife  time.Duration

	Preprocess   PreprocessCfg
	Invalidation InvalidationCfg
	Events       EventsCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 6)
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}

	ttlWarm := getduration("CACHE_TTL_WARM", 15*time.Minute)

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		Mode:       getenv("MODE", "baseline"),
		ImageryURL: getenv("IMAGERY_URL", "http://localhost:8080/imagery"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),

		H3Res: res,

		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheTTLCold:   getduration("CACHE_TTL_COLD", ttlWarm/2),
		CacheTTLWarm:   ttlWarm,
		CacheTTLHot:    getduration("CACHE_TTL_HOT", 2*ttlWarm),
		LRUSize:        getint("CACHE_LRU_SIZE", 256),

		HotThreshold: getfloat("HOT_THRESHOLD", 10.0),
		HotHalfLife:  getduration("HOT_HALF_LIFE", time.Minute),

		Preprocess: PreprocessCfg{
			Enabled: getbool("PREPROC_ENABLED", false),
			QABand:  getenv("PREPROC_QA_BAND", "qa_pixel"),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("KAFKA_TOPIC", "imagery-events"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			GroupID: getenv("KAFKA_GROUP_ID", "product-invalidator"),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Topic:   getenv("EVENTS_TOPIC", "product-computed"),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
