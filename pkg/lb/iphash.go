package lb

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
)

// IPHash is stateless beyond the backend set: SelectBackend is a pure
// function of the client endpoint, per spec.md §4.3's formula
// `h = hash(ip) * 37 + port * 37^2`.
type IPHash struct {
	mu       sync.RWMutex
	backends []backend.Backend
}

// NewIPHash constructs an empty IPHash selector.
func NewIPHash() *IPHash {
	return &IPHash{}
}

func (h *IPHash) Configure(cfg Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	backends := make([]backend.Backend, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		if e.Weight != 0 {
			return fmt.Errorf("%w: weight is not valid for ip_hash", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		backends = append(backends, b)
	}
	if len(backends) == 0 {
		return fmt.Errorf("%w: ip_hash requires at least one endpoint", ErrConfigError)
	}
	h.backends = backends
	return nil
}

func (h *IPHash) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hv := xxhash.Sum64String(clientIP)*37 + uint64(clientPort)*37*37
	return h.backends[hv%uint64(len(h.backends))], nil
}

func (h *IPHash) ExcludeBackend(b backend.Backend) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.backends) <= 1 {
		return ErrAllBackendsExcluded
	}
	for i, cur := range h.backends {
		if cur.Equal(b) {
			h.backends = append(h.backends[:i], h.backends[i+1:]...)
			return nil
		}
	}
	return nil
}

func (h *IPHash) Type() Kind { return KindIPHash }

func (h *IPHash) NewVisitor(b backend.Backend) Visitor { return NullVisitor{} }
