package lb

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
	"github.com/therealutkarshpriyadarshi/balance/pkg/ring"
)

// clientNode adapts a client (ip, port) pair to ring.Node for use as the
// select() key.
type clientNode struct {
	ip   string
	port int
}

func (c clientNode) String() string { return c.ip + ":" + strconv.Itoa(c.port) }

// ConsistentHash delegates to pkg/ring with the client endpoint as the
// key node, per spec.md §4.3. This replaces the teacher's FNV-32
// rebuild-on-change ring in favor of pkg/ring's 64-bit, O(log N)-select
// structure.
type ConsistentHash struct {
	mu       sync.Mutex
	ring     *ring.Ring
	replicas int
}

// NewConsistentHash constructs an empty ConsistentHash selector with r
// virtual replicas per physical backend.
func NewConsistentHash(r int) *ConsistentHash {
	return &ConsistentHash{ring: ring.New(r), replicas: r}
}

func (c *ConsistentHash) Configure(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.Replicas == 0 {
		return fmt.Errorf("%w: consistent_hash requires a non-zero replicas count", ErrConfigError)
	}

	for _, e := range cfg.Endpoints {
		if e.Weight != 0 {
			return fmt.Errorf("%w: weight is not valid for consistent_hash", ErrConfigError)
		}
		b, err := toBackend(e)
		if err != nil {
			return err
		}
		c.ring.Insert(b)
	}
	if c.ring.Size() == 0 {
		return fmt.Errorf("%w: consistent_hash requires at least one endpoint", ErrConfigError)
	}
	return nil
}

func (c *ConsistentHash) SelectBackend(clientIP string, clientPort int) (backend.Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.ring.Select(clientNode{ip: clientIP, port: clientPort})
	if err != nil {
		return backend.Backend{}, err
	}
	return n.(backend.Backend), nil
}

func (c *ConsistentHash) ExcludeBackend(b backend.Backend) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ring.Size() <= 1 {
		return ErrAllBackendsExcluded
	}
	c.ring.Erase(b)
	return nil
}

func (c *ConsistentHash) Type() Kind { return KindConsistentHash }

func (c *ConsistentHash) NewVisitor(b backend.Backend) Visitor { return NullVisitor{} }
