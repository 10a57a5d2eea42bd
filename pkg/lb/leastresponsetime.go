package lb

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
)

// lrtItem is one {backend, ema, alpha} entry, per spec.md §3.
type lrtItem struct {
	backend backend.Backend
	ema     float64
	alpha   float64
	index   int
}

// lrtHeap orders by ascending ema — the backend with the lowest observed
// latency sits at the top.
type lrtHeap []*lrtItem

func (h lrtHeap) Len() int           { return len(h) }
func (h lrtHeap) Less(i, j int) bool { return h[i].ema < h[j].ema }
func (h lrtHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lrtHeap) Push(x any) {
	item := x.(*lrtItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *lrtHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// LeastResponseTime keeps a min-heap over {backend, ema, alpha} where ema
// is an exponentially-weighted moving average of observed response
// latency, per spec.md §3/§4.3. A freshly-added backend has ema=0, so it
// sorts to the top and is preferentially selected until it accumulates
// real samples.
type LeastResponseTime struct {
	mu         sync.Mutex
	h          lrtHeap
	index      map[string]*lrtItem
	defaultAlpha float64
}

// NewLeastResponseTime constructs an empty LeastResponseTime selector
// with the given default alpha (spec.md default: 0.9).
func NewLeastResponseTime(alpha float64) *LeastResponseTime {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.9
	}
	return &LeastResponseTime{index: make(map[string]*lrtItem), defaultAlpha: alpha}
}

func (l *LeastResponseTime) Configure(cfg Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range cfg.Endpoints {
		if e.Weight != 0 {
			return fmt.Errorf("%w: weight is not valid for least_response_time", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		item := &lrtItem{backend: b, alpha: l.defaultAlpha}
		l.index[b.String()] = item
		heap.Push(&l.h, item)
	}
	if l.h.Len() == 0 {
		return fmt.Errorf("%w: least_response_time requires at least one endpoint", ErrConfigError)
	}
	return nil
}

func (l *LeastResponseTime) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.h[0].backend, nil
}

func (l *LeastResponseTime) ExcludeBackend(b backend.Backend) error {
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

func (l *LeastResponseTime) Type() Kind { return KindLeastResponseTime }

// observe updates ema' = (1-alpha)*ema + alpha*sampleNanos and re-heaps,
// per spec.md §4.3/§9: a decrease is a heap.decrease (ema improved), an
// increase is a heap.increase (ema worsened) — container/heap.Fix
// handles both directions uniformly since it re-sifts in whichever
// direction restores the heap property.
func (l *LeastResponseTime) observe(b backend.Backend, sampleNanos int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.index[b.String()]
	if !ok {
		return
	}
	item.ema = (1-item.alpha)*item.ema + item.alpha*float64(sampleNanos)
	heap.Fix(&l.h, item.index)
}

func (l *LeastResponseTime) NewVisitor(b backend.Backend) Visitor {
	return &leastResponseTimeVisitor{NullVisitor: NullVisitor{}, sel: l, backend: b}
}

// leastResponseTimeVisitor feeds the observed response latency back into
// the selector's EMA OnResponseReceive.
type leastResponseTimeVisitor struct {
	NullVisitor
	sel     *LeastResponseTime
	backend backend.Backend
}

func (v *leastResponseTimeVisitor) OnResponseReceive(latencyNanos int64) {
	v.sel.observe(v.backend, latencyNanos)
}
