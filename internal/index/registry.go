package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrFrozenRegistry is returned by Register after the first Resolve call.
var ErrFrozenRegistry = errors.New("index: registry is frozen")

// Registry maps index names to definitions. Registration happens at startup;
// the first Resolve freezes the registry, after which it is read-only and
// safe to share across concurrent callers.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	frozen atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

func (g *Registry) Register(def Definition) error {
	if g.frozen.Load() {
		return ErrFrozenRegistry
	}
	if err := validate(def); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.defs[def.Name]; ok {
		return &DuplicateIndexError{Name: def.Name}
	}
	// defensive copies so the caller cannot mutate a registered definition
	bands := make([]string, len(def.Bands))
	copy(bands, def.Bands)
	def.Bands = bands
	if def.Range != nil {
		rng := *def.Range
		def.Range = &rng
	}
	g.defs[def.Name] = def
	return nil
}

func (g *Registry) Resolve(name string) (Definition, error) {
	g.frozen.Store(true)

	g.mu.RLock()
	defer g.mu.RUnlock()
	def, ok := g.defs[name]
	if !ok {
		return Definition{}, &UnknownIndexError{Name: name}
	}
	return def, nil
}

// Names returns the registered index names sorted alphabetically.
func (g *Registry) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.defs))
	for name := range g.defs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Definitions returns every registered definition, sorted by name.
func (g *Registry) Definitions() []Definition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Definition, 0, len(g.defs))
	for _, def := range g.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func validate(def Definition) error {
	if def.Name == "" {
		return &InvalidFormulaError{Index: def.Name, Reason: "empty name"}
	}
	if len(def.Bands) == 0 {
		return &InvalidFormulaError{Index: def.Name, Reason: "no required bands"}
	}
	seen := make(map[string]struct{}, len(def.Bands))
	for _, role := range def.Bands {
		if role == "" {
			return &InvalidFormulaError{Index: def.Name, Reason: "empty band role"}
		}
		if _, ok := seen[role]; ok {
			return &InvalidFormulaError{Index: def.Name, Reason: fmt.Sprintf("duplicate band role %q", role)}
		}
		seen[role] = struct{}{}
	}
	if def.Fn == nil {
		return &InvalidFormulaError{Index: def.Name, Reason: "nil formula"}
	}
	if def.Range != nil && def.Range.Min > def.Range.Max {
		return &InvalidFormulaError{Index: def.Name, Reason: "inverted output range"}
	}
	return nil
}
