// Package hotness tracks per-scene request heat, which picks the cache TTL
// class for computed products.
package hotness

type Interface interface {
	Inc(scene string)
	Score(scene string) float64
	Reset(scenes ...string)
}

// Class buckets a hotness score. Hot scenes keep their products cached
// longest; cold products expire quickly so reprocessed imagery shows up.
type Class int

const (
	Cold Class = iota
	Warm
	Hot
)

func (c Class) String() string {
	switch c {
	case Hot:
		return "hot"
	case Warm:
		return "warm"
	default:
		return "cold"
	}
}

// Classify buckets score against the hot threshold; warm starts at a quarter
// of it.
func Classify(score, hotThreshold float64) Class {
	if hotThreshold <= 0 {
		return Warm
	}
	switch {
	case score >= hotThreshold:
		return Hot
	case score >= hotThreshold/4:
		return Warm
	default:
		return Cold
	}
}
