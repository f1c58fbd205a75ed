// Package retrieval fetches scene rasters from the external imagery
// service. The service owns all image acquisition and pre-compositing; this
// client only speaks its HTTP contract: GET {base}/scenes/{id} returning an
// encoded raster with named bands and validity masks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/raster"
)

// maxScenePayload bounds a scene document read; a 10k x 10k single-band
// float64 scene encodes well below this.
const maxScenePayload = 256 << 20

// SceneNotFoundError reports an id the imagery service does not know.
type SceneNotFoundError struct {
	ID string
}

func (e *SceneNotFoundError) Error() string {
	return fmt.Sprintf("retrieval: scene %q not found", e.ID)
}

// Interface is what the pipeline modes depend on.
type Interface interface {
	FetchScene(ctx context.Context, id string) (*raster.Raster, error)
}

type Client struct {
	logger *slog.Logger
	http   *http.Client
	base   *url.URL
}

func New(logger *slog.Logger, client *http.Client, baseURL string) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("retrieval: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("retrieval: unsupported scheme %q", u.Scheme)
	}
	return &Client{logger: logger, http: client, base: u}, nil
}

func (c *Client) FetchScene(ctx context.Context, id string) (*raster.Raster, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("retrieval: empty scene id")
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/scenes/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("retrieval: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.ObserveUpstreamLatency("imagery", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("retrieval: fetch scene %q: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, &SceneNotFoundError{ID: id}
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("retrieval: scene %q: upstream status %d: %s", id, resp.StatusCode, string(b))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScenePayload))
	if err != nil {
		return nil, fmt.Errorf("retrieval: read scene %q: %w", id, err)
	}

	r, err := raster.Unmarshal(body)
	if err != nil {
		return nil, fmt.Errorf("retrieval: decode scene %q: %w", id, err)
	}

	c.logger.Debug("scene fetched",
		"scene", id,
		"bands", len(r.BandNames()),
		"pixels", r.Size(),
		"duration_ms", time.Since(start).Milliseconds())
	return r, nil
}
