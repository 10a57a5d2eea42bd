// Package ring implements a generic consistent-hash ring: an ordered
// hash->node map with virtual replicas and successor lookup, per
// spec.md §4.2. Extracted and generalized from the teacher's
// backend-specific ring logic in pkg/lb/consistent.go.
package ring

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ErrEmptyRing is returned by Select when no physical nodes remain.
var ErrEmptyRing = errors.New("ring: empty")

// Node is anything the ring can place: it must render to a stable string
// so replica hashes and the primary hash are both derived from it.
type Node interface {
	String() string
}

// entry is one ring position: a hash and the node it maps to.
type entry struct {
	hash uint64
	node Node
}

// Ring is a consistent-hash ring with R virtual replicas per physical
// node. Select is an O(log N) binary search; insert appends R entries
// and re-sorts all N of them, and erase sweeps all N entries. Ring is
// not safe for concurrent
// use on its own; callers (the selectors in pkg/lb) hold their own
// mutex around it, per spec.md §5.
type Ring struct {
	replicas int
	entries  []entry // sorted by hash
	physical []Node
	primary  map[uint64]Node // primary hash -> node; Erase matches entries by node string instead
}

// New builds an empty ring with r virtual replicas per inserted node.
func New(r int) *Ring {
	return &Ring{
		replicas: r,
		primary:  make(map[uint64]Node),
	}
}

// replicaHash computes the i-th virtual-node hash for node, as
// hash(node.String() + "#" + i), per SPEC_FULL.md §12.
func replicaHash(node Node, i int) uint64 {
	return xxhash.Sum64String(node.String() + "#" + strconv.Itoa(i))
}

// Insert appends node to the physical list and maps each of its R
// replica hashes into the ring. Collisions overwrite, which is
// acceptable at 64 bits per spec.md §4.2.
func (r *Ring) Insert(node Node) {
	r.physical = append(r.physical, node)
	r.primary[replicaHash(node, 0)] = node

	for i := 0; i < r.replicas; i++ {
		h := replicaHash(node, i)
		r.entries = append(r.entries, entry{hash: h, node: node})
	}
	sort.Slice(r.entries, func(i, j int) bool { return r.entries[i].hash < r.entries[j].hash })
}

// Erase removes node's physical entry and sweeps every ring entry
// pointing to it, per spec.md §4.2 ("erase atomically removes all R
// entries").
func (r *Ring) Erase(node Node) {
	target := node.String()

	kept := r.entries[:0:0]
	for _, e := range r.entries {
		if e.node.String() != target {
			kept = append(kept, e)
		}
	}
	r.entries = kept

	for i, p := range r.physical {
		if p.String() == target {
			r.physical = append(r.physical[:i], r.physical[i+1:]...)
			break
		}
	}
	delete(r.primary, replicaHash(node, 0))
}

// Select computes hash(keyNode) and returns the node at the first ring
// entry with hash >= key (successor), wrapping to the smallest entry if
// none. Fails with ErrEmptyRing if no physical nodes remain.
func (r *Ring) Select(keyNode Node) (Node, error) {
	if len(r.physical) == 0 {
		return nil, fmt.Errorf("%w: no physical nodes", ErrEmptyRing)
	}
	if len(r.entries) == 0 {
		return nil, fmt.Errorf("%w: no ring entries", ErrEmptyRing)
	}

	key := xxhash.Sum64String(keyNode.String())
	i := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].hash >= key })
	if i == len(r.entries) {
		i = 0
	}
	return r.entries[i].node, nil
}

// Size returns the number of physical nodes currently in the ring.
func (r *Ring) Size() int {
	return len(r.physical)
}

// EntryCount returns the number of virtual ring entries (physical * R).
func (r *Ring) EntryCount() int {
	return len(r.entries)
}
