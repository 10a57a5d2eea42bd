package lb

import (
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
)

// RoundRobin advances a counter modulo the live-set size and returns the
// indexed backend. Grounded on the teacher's pkg/lb/roundrobin.go
// atomic-counter idiom, flattened under a single mutex so that two
// concurrent SelectBackend calls always return two consecutive
// positions (spec.md §4.3).
type RoundRobin struct {
	mu       sync.Mutex
	backends []backend.Backend
	next     int
}

// NewRoundRobin constructs an empty RoundRobin selector.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) Configure(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backends := make([]backend.Backend, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		if e.Weight != 0 {
			return fmt.Errorf("%w: weight is not valid for round_robin", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		backends = append(backends, b)
	}
	if len(backends) == 0 {
		return fmt.Errorf("%w: round_robin requires at least one endpoint", ErrConfigError)
	}
	r.backends = backends
	r.next = 0
	return nil
}

func (r *RoundRobin) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.backends[r.next%len(r.backends)]
	r.next++
	return b, nil
}

func (r *RoundRobin) ExcludeBackend(b backend.Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.backends) <= 1 {
		return ErrAllBackendsExcluded
	}
	for i, cur := range r.backends {
		if cur.Equal(b) {
			r.backends = append(r.backends[:i], r.backends[i+1:]...)
			r.next = 0
			return nil
		}
	}
	return nil
}

func (r *RoundRobin) Type() Kind { return KindRoundRobin }

func (r *RoundRobin) NewVisitor(b backend.Backend) Visitor { return NullVisitor{} }
