// Package lb implements the selector family: six load-balancing policies
// behind one Selector interface, per spec.md §4.3.
package lb

import (
	"errors"
	"fmt"

	"github.com/therealutkarshpriyadarshi/balance/pkg/backend"
)

// ErrConfigError is returned by Configure/DetectSelector for missing or
// ill-typed config fields.
var ErrConfigError = errors.New("lb: config error")

// ErrAllBackendsExcluded is returned by ExcludeBackend when removing the
// last backend would leave the selector empty.
var ErrAllBackendsExcluded = errors.New("lb: all backends excluded")

// Kind identifies a selector policy.
type Kind int

const (
	KindRoundRobin Kind = iota
	KindWeightedRoundRobin
	KindIPHash
	KindConsistentHash
	KindLeastConnections
	KindLeastResponseTime
)

func (k Kind) String() string {
	switch k {
	case KindRoundRobin:
		return "round_robin"
	case KindWeightedRoundRobin:
		return "weighted_round_robin"
	case KindIPHash:
		return "ip_hash"
	case KindConsistentHash:
		return "consistent_hash"
	case KindLeastConnections:
		return "least_connections"
	case KindLeastResponseTime:
		return "least_response_time"
	default:
		return "unknown"
	}
}

// EndpointConfig is one entry of load_balancing.endpoints: either an
// {ip, port} or a {url}, with an optional weight.
type EndpointConfig struct {
	IP     string `yaml:"ip,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Weight int    `yaml:"weight,omitempty"`
}

// Config is the parsed load_balancing config block (spec.md §6). It is
// defined here, not in pkg/config, so pkg/config can depend on pkg/lb
// without a cycle.
type Config struct {
	Algorithm string           `yaml:"algorithm"`
	Replicas  int              `yaml:"replicas,omitempty"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// Visitor is the callback bundle a session fires at fixed lifecycle
// points, per spec.md §4.5/§9. Unneeded hooks are no-ops; NullVisitor
// supplies the no-op default so concrete visitors only override what
// they need.
type Visitor interface {
	OnConnect()
	OnDisconnect()
	OnRequestReceive()
	OnRequestSent()
	OnResponseReceive(latencyNanos int64)
	OnResponseSent()
}

// NullVisitor is the zero-cost default Visitor; selectors that need no
// feedback (RoundRobin, WeightedRoundRobin, IpHash, ConsistentHash)
// return it from NewVisitor.
type NullVisitor struct{}

func (NullVisitor) OnConnect()                         {}
func (NullVisitor) OnDisconnect()                       {}
func (NullVisitor) OnRequestReceive()                   {}
func (NullVisitor) OnRequestSent()                      {}
func (NullVisitor) OnResponseReceive(latencyNanos int64) {}
func (NullVisitor) OnResponseSent()                     {}

// Selector is the trait every load-balancing policy implements, per
// spec.md §4.3.
type Selector interface {
	// Configure populates the backend set from cfg.
	Configure(cfg Config) error
	// SelectBackend returns a backend by policy. Safe under concurrent
	// callers. clientIP/clientPort identify the client endpoint, used
	// by IpHash and ConsistentHash as the key node.
	SelectBackend(clientIP string, clientPort int) (backend.Backend, error)
	// ExcludeBackend permanently removes b. Fails with
	// ErrAllBackendsExcluded if b is the last backend.
	ExcludeBackend(b backend.Backend) error
	// Type reports the selector's policy kind.
	Type() Kind
	// NewVisitor returns the lifecycle callback bundle the connector
	// should wire into a session that was handed b by SelectBackend.
	NewVisitor(b backend.Backend) Visitor
}

// toBackend converts one EndpointConfig entry into a backend.Backend,
// choosing the endpoint or URL variant. Grounded on
// original_source/src/lb/tcp/selectors.cpp's Backend constructors.
func toBackend(e EndpointConfig) (backend.Backend, error) {
	if e.URL != "" {
		u, err := parseBackendURL(e.URL)
		if err != nil {
			return backend.Backend{}, err
		}
		return backend.NewURL(u), nil
	}
	if e.IP == "" {
		return backend.Backend{}, fmt.Errorf("%w: endpoint missing both ip and url", ErrConfigError)
	}
	return backend.NewEndpoint(e.IP, e.Port), nil
}

// DetectSelector reads cfg.Algorithm and constructs the matching
// selector, configured from cfg. Grounded on
// original_source/src/lb/tcp/selectors.cpp's DetectSelector, including
// its config-error structure (SPEC_FULL.md §12).
func DetectSelector(cfg Config) (Selector, error) {
	if cfg.Algorithm == "" {
		return nil, fmt.Errorf("%w: load_balancing.algorithm is required", ErrConfigError)
	}

	var s Selector
	switch cfg.Algorithm {
	case "round_robin":
		s = NewRoundRobin()
	case "weighted_round_robin":
		s = NewWeightedRoundRobin()
	case "ip_hash":
		s = NewIPHash()
	case "consistent_hash":
		if cfg.Replicas == 0 {
			return nil, fmt.Errorf("%w: consistent_hash requires a non-zero replicas count", ErrConfigError)
		}
		s = NewConsistentHash(cfg.Replicas)
	case "least_connections":
		s = NewLeastConnections()
	case "least_response_time":
		s = NewLeastResponseTime(0.9)
	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrConfigError, cfg.Algorithm)
	}

	if err := s.Configure(cfg); err != nil {
		return nil, err
	}
	return s, nil
}
