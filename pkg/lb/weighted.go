package lb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
)

// weightedEntry is one {backend, weight, current} tuple, per spec.md §3.
type weightedEntry struct {
	backend backend.Backend
	weight  int
	current int
}

// WeightedRoundRobin holds a weight-descending sequence of backends and
// emits the entry at counter up to weight times before advancing, per
// spec.md §4.3. This replaces the teacher's stateless atomic-offset
// scheme, which does not produce the contiguous per-cycle runs spec.md
// Property 2 and scenario S2 require.
type WeightedRoundRobin struct {
	mu      sync.Mutex
	entries []weightedEntry
	counter int
}

// NewWeightedRoundRobin constructs an empty WeightedRoundRobin selector.
func NewWeightedRoundRobin() *WeightedRoundRobin {
	return &WeightedRoundRobin{}
}

func (w *WeightedRoundRobin) Configure(cfg Config) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := make([]weightedEntry, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		if e.Weight <= 0 {
			return fmt.Errorf("%w: weight is required for weighted_round_robin", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		entries = append(entries, weightedEntry{backend: b, weight: e.Weight})
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: weighted_round_robin requires at least one endpoint", ErrConfigError)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].weight > entries[j].weight })

	w.entries = entries
	w.counter = 0
	return nil
}

func (w *WeightedRoundRobin) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.counter % len(w.entries)
	e := &w.entries[idx]
	e.current++
	if e.current >= e.weight {
		e.current = 0
		w.counter++
	}
	return e.backend, nil
}

func (w *WeightedRoundRobin) ExcludeBackend(b backend.Backend) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.entries) <= 1 {
		return ErrAllBackendsExcluded
	}
	for i, e := range w.entries {
		if e.backend.Equal(b) {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			w.counter = 0
			for j := range w.entries {
				w.entries[j].current = 0
			}
			return nil
		}
	}
	return nil
}

func (w *WeightedRoundRobin) Type() Kind { return KindWeightedRoundRobin }

func (w *WeightedRoundRobin) NewVisitor(b backend.Backend) Visitor { return NullVisitor{} }
