// Package router validates incoming query parameters and dispatches to the
// active pipeline mode.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geovine/spectral-cache/internal/core/model"
	"github.com/geovine/spectral-cache/internal/core/observability"
	"github.com/geovine/spectral-cache/internal/index"
)

// ComputeHandler receives validated requests and serves them.
type ComputeHandler interface {
	HandleCompute(ctx context.Context, w http.ResponseWriter, r *http.Request, q model.ComputeRequest)
	HandleChange(ctx context.Context, w http.ResponseWriter, r *http.Request, q model.ChangeRequest)
}

var (
	sceneRe = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
	indexRe = regexp.MustCompile(`^[A-Za-z0-9_]{1,32}$`)
)

func HandleCompute(logger *slog.Logger, h ComputeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseComputeRequest(r)
		if err != nil {
			logger.Debug("compute request rejected", "err", err)
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/compute", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		h.HandleCompute(r.Context(), sw, r, q)
		observability.ObserveHTTP(r.Method, "/compute", sw.code, time.Since(start).Seconds())
	}
}

func HandleChange(logger *slog.Logger, h ComputeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		q, err := ParseChangeRequest(r)
		if err != nil {
			logger.Debug("change request rejected", "err", err)
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/change", http.StatusBadRequest, time.Since(start).Seconds())
			return
		}

		h.HandleChange(r.Context(), sw, r, q)
		observability.ObserveHTTP(r.Method, "/change", sw.code, time.Since(start).Seconds())
	}
}

// HandleIndices serves the formula catalog: name, required roles and output
// range of every registered index.
func HandleIndices(reg *index.Registry) http.HandlerFunc {
	type entry struct {
		Name  string   `json:"name"`
		Bands []string `json:"bands"`
		Min   *float64 `json:"min,omitempty"`
		Max   *float64 `json:"max,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defs := reg.Definitions()
		out := make([]entry, 0, len(defs))
		for _, d := range defs {
			e := entry{Name: d.Name, Bands: d.Bands}
			if d.Range != nil {
				mn, mx := d.Range.Min, d.Range.Max
				e.Min, e.Max = &mn, &mx
			}
			out = append(out, e)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
		observability.ObserveHTTP(r.Method, "/indices", http.StatusOK, time.Since(start).Seconds())
	}
}

func ParseComputeRequest(r *http.Request) (model.ComputeRequest, error) {
	scene := strings.TrimSpace(r.URL.Query().Get("scene"))
	if scene == "" {
		return model.ComputeRequest{}, errors.New("missing required parameter: scene")
	}
	if !sceneRe.MatchString(scene) {
		return model.ComputeRequest{}, fmt.Errorf("invalid scene id %q", scene)
	}

	idx := strings.TrimSpace(r.URL.Query().Get("index"))
	if idx == "" {
		return model.ComputeRequest{}, errors.New("missing required parameter: index")
	}
	if !indexRe.MatchString(idx) {
		return model.ComputeRequest{}, fmt.Errorf("invalid index name %q", idx)
	}

	q := model.ComputeRequest{Scene: scene, Index: idx, ZonalRes: -1}

	if v := strings.TrimSpace(r.URL.Query().Get("stats")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return model.ComputeRequest{}, fmt.Errorf("invalid stats flag %q", v)
		}
		q.Stats = b
	}
	if v := strings.TrimSpace(r.URL.Query().Get("zonal")); v != "" {
		res, err := strconv.Atoi(v)
		if err != nil || res < 0 || res > 15 {
			return model.ComputeRequest{}, fmt.Errorf("invalid zonal resolution %q", v)
		}
		q.ZonalRes = res
	}
	return q, nil
}

func ParseChangeRequest(r *http.Request) (model.ChangeRequest, error) {
	pre := strings.TrimSpace(r.URL.Query().Get("pre"))
	post := strings.TrimSpace(r.URL.Query().Get("post"))
	idx := strings.TrimSpace(r.URL.Query().Get("index"))

	if pre == "" || post == "" {
		return model.ChangeRequest{}, errors.New("missing required parameters: pre and post")
	}
	if !sceneRe.MatchString(pre) {
		return model.ChangeRequest{}, fmt.Errorf("invalid scene id %q", pre)
	}
	if !sceneRe.MatchString(post) {
		return model.ChangeRequest{}, fmt.Errorf("invalid scene id %q", post)
	}
	if idx == "" {
		return model.ChangeRequest{}, errors.New("missing required parameter: index")
	}
	if !indexRe.MatchString(idx) {
		return model.ChangeRequest{}, fmt.Errorf("invalid index name %q", idx)
	}
	return model.ChangeRequest{Pre: pre, Post: post, Index: idx}, nil
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
