// Package expdecay implements an exponentially decaying hotness score per
// scene, sharded to keep request-path contention low.
package expdecay

import (
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/geovine/spectral-cache/internal/hotness"
)

const numShards = 32 // power of two, see pick

type Tracker struct {
	halfLife time.Duration
	now      func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]counter
}

type counter struct {
	score float64
	last  time.Time
}

var _ hotness.Interface = (*Tracker)(nil)

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{halfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]counter)
	}
	return t
}

func (t *Tracker) Inc(scene string) {
	if scene == "" {
		return
	}
	s := t.pick(scene)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.m[scene]
	if !ok {
		s.m[scene] = counter{score: 1, last: n}
		return
	}
	dt := n.Sub(c.last).Seconds()
	s.m[scene] = counter{
		score: decay(c.score, dt, t.halfLife.Seconds()) + 1,
		last:  n,
	}
}

func (t *Tracker) Score(scene string) float64 {
	if scene == "" {
		return 0
	}
	s := t.pick(scene)
	n := t.now()

	s.mu.RLock()
	c, ok := s.m[scene]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return decay(c.score, n.Sub(c.last).Seconds(), t.halfLife.Seconds())
}

func (t *Tracker) Reset(scenes ...string) {
	for _, scene := range scenes {
		if scene == "" {
			continue
		}
		s := t.pick(scene)
		s.mu.Lock()
		delete(s.m, scene)
		s.mu.Unlock()
	}
}

// decay applies e^(-λt) with λ = ln2/halfLife.
func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	return score * math.Exp(-math.Ln2/halfLife*dt)
}

func (t *Tracker) pick(scene string) *shard {
	h := xxhash.Sum64String(scene)
	return &t.shards[h&(numShards-1)]
}
