package lb

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
	"github.com/therealutkarshpriyadarshi/balance/pkg/metrics"
)

// lcItem is one {backend, open-connection-count} entry in the
// LeastConnections min-heap, with a heap index for O(log n) in-place
// updates (spec.md §3).
type lcItem struct {
	backend backend.Backend
	conns   int
	index   int
}

// lcHeap is a container/heap.Interface ordering by ascending conns.
type lcHeap []*lcItem

func (h lcHeap) Len() int            { return len(h) }
func (h lcHeap) Less(i, j int) bool  { return h[i].conns < h[j].conns }
func (h lcHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lcHeap) Push(x any) {
	item := x.(*lcItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *lcHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// LeastConnections keeps a min-priority heap over {backend,
// open-connection-count} with a side index for O(log n) updates, per
// spec.md §3/§4.3. The source guards this with a reentrant lock because
// SelectBackend transitively calls IncreaseConnectionCount; this
// implementation flattens both the heap-top read and the counter
// mutation into one critical section instead (spec.md §9 Design Notes).
type LeastConnections struct {
	mu    sync.Mutex
	h     lcHeap
	index map[string]*lcItem
}

// NewLeastConnections constructs an empty LeastConnections selector.
func NewLeastConnections() *LeastConnections {
	return &LeastConnections{index: make(map[string]*lcItem)}
}

func (l *LeastConnections) Configure(cfg Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range cfg.Endpoints {
		if e.Weight != 0 {
			return fmt.Errorf("%w: weight is not valid for least_connections", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		item := &lcItem{backend: b}
		l.index[b.String()] = item
		heap.Push(&l.h, item)
	}
	if l.h.Len() == 0 {
		return fmt.Errorf("%w: least_connections requires at least one endpoint", ErrConfigError)
	}
	return nil
}

// SelectBackend reads the heap top and immediately increments its
// connection count (spec.md §4.3's LeastConnections contract), so a
// subsequent concurrent SelectBackend observes the updated load.
func (l *LeastConnections) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	top := l.h[0]
	top.conns++
	heap.Fix(&l.h, top.index)
	metrics.SetBackendConnectionsActive(top.backend.String(), top.conns)
	return top.backend, nil
}

func (l *LeastConnections) ExcludeBackend(b backend.Backend) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.h.Len() <= 1 {
		return ErrAllBackendsExcluded
	}
	item, ok := l.index[b.String()]
	if !ok {
		return nil
	}
	heap.Remove(&l.h, item.index)
	delete(l.index, b.String())
	return nil
}

func (l *LeastConnections) Type() Kind { return KindLeastConnections }

// decrease is called by the Visitor's OnDisconnect hook to release the
// connection slot acquired by SelectBackend, never dropping below 0.
func (l *LeastConnections) decrease(b backend.Backend) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.index[b.String()]
	if !ok || item.conns == 0 {
		return
	}
	item.conns--
	heap.Fix(&l.h, item.index)
	metrics.SetBackendConnectionsActive(item.backend.String(), item.conns)
}

func (l *LeastConnections) NewVisitor(b backend.Backend) Visitor {
	return &leastConnVisitor{NullVisitor: NullVisitor{}, sel: l, backend: b}
}

// leastConnVisitor decrements the backend's connection count OnDisconnect.
type leastConnVisitor struct {
	NullVisitor
	sel     *LeastConnections
	backend backend.Backend
}

func (v *leastConnVisitor) OnDisconnect() {
	v.sel.decrease(v.backend)
}
