// Package prodindex maintains the reverse index from scenes and H3 cells to
// cached product keys, so invalidation can find everything derived from an
// acquisition.
package prodindex

import (
	"context"
	"fmt"

	"github.com/geovine/spectral-cache/internal/cache/keys"
	"github.com/geovine/spectral-cache/internal/cache/redisstore"
	"github.com/geovine/spectral-cache/internal/core/model"
)

type Index struct {
	cli *redisstore.Client
}

func New(cli *redisstore.Client) *Index {
	return &Index{cli: cli}
}

// Add records a cached product key under every scene it derives from, and
// every scene under the cells its extent covers.
func (ix *Index) Add(ctx context.Context, productKey string, scenes []string, cells model.Cells) error {
	for _, scene := range scenes {
		if err := ix.cli.SAdd(ctx, keys.SceneSet(scene), productKey); err != nil {
			return fmt.Errorf("prodindex scene %q: %w", scene, err)
		}
		for _, cell := range cells {
			if err := ix.cli.SAdd(ctx, keys.CellSet(cell), scene); err != nil {
				return fmt.Errorf("prodindex cell %q: %w", cell, err)
			}
		}
	}
	return nil
}

// KeysForScene lists the cached product keys derived from one scene.
func (ix *Index) KeysForScene(ctx context.Context, scene string) ([]string, error) {
	out, err := ix.cli.SMembers(ctx, keys.SceneSet(scene))
	if err != nil {
		return nil, fmt.Errorf("prodindex scene %q: %w", scene, err)
	}
	return out, nil
}

// ScenesForCells lists the scenes whose extents cover any of the cells.
func (ix *Index) ScenesForCells(ctx context.Context, cells model.Cells) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, cell := range cells {
		scenes, err := ix.cli.SMembers(ctx, keys.CellSet(cell))
		if err != nil {
			return nil, fmt.Errorf("prodindex cell %q: %w", cell, err)
		}
		for _, s := range scenes {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out, nil
}

// DropScene removes the scene's product set after its keys were deleted.
// Cell sets are left to expire naturally; a stale scene reference only costs
// an empty SMEMBERS on the next invalidation.
func (ix *Index) DropScene(ctx context.Context, scene string) error {
	if err := ix.cli.Del(ctx, keys.SceneSet(scene)); err != nil {
		return fmt.Errorf("prodindex drop scene %q: %w", scene, err)
	}
	return nil
}
