// Package backend implements the Backend value: a tagged union of an IP
// endpoint and a URL reference, as used by every selector in pkg/lb.
package backend

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/therealutkarshpriyadarshi/balance/pkg/urlvalue"
)

// Kind distinguishes the two Backend variants.
type Kind int

const (
	// KindEndpoint is a bare ip:port backend.
	KindEndpoint Kind = iota
	// KindURL is a backend that must be DNS-resolved before connecting.
	KindURL
)

// Backend is a sum type: either an IP endpoint or a URL. The zero value is
// not a valid Backend; construct with NewEndpoint or NewURL.
type Backend struct {
	kind Kind
	ip   string
	port int
	url  urlvalue.URL
}

// NewEndpoint builds an IP-endpoint Backend.
func NewEndpoint(ip string, port int) Backend {
	return Backend{kind: KindEndpoint, ip: ip, port: port}
}

// NewURL builds a URL-reference Backend.
func NewURL(u urlvalue.URL) Backend {
	return Backend{kind: KindURL, url: u}
}

// IsEndpoint reports whether this Backend is the IP-endpoint variant.
func (b Backend) IsEndpoint() bool { return b.kind == KindEndpoint }

// IsURL reports whether this Backend is the URL-reference variant.
func (b Backend) IsURL() bool { return b.kind == KindURL }

// Endpoint returns the ip and port for the endpoint variant. Calling this
// on a URL-variant Backend is a programmer error; callers must check
// IsEndpoint first.
func (b Backend) Endpoint() (ip string, port int) {
	return b.ip, b.port
}

// URL returns the urlvalue.URL for the URL variant. Calling this on an
// endpoint-variant Backend is a programmer error; callers must check
// IsURL first.
func (b Backend) URL() urlvalue.URL {
	return b.url
}

// String returns "ip:port" for endpoints or the URL's canonical form.
func (b Backend) String() string {
	if b.kind == KindEndpoint {
		return b.ip + ":" + strconv.Itoa(b.port)
	}
	return b.url.String()
}

// Equal reports structural equality respecting the active variant.
func (b Backend) Equal(other Backend) bool {
	if b.kind != other.kind {
		return false
	}
	if b.kind == KindEndpoint {
		return b.ip == other.ip && b.port == other.port
	}
	return b.url.Equal(other.url)
}

// Hash returns the 64-bit hash of String(), per spec.md §3.
func (b Backend) Hash() uint64 {
	return xxhash.Sum64String(b.String())
}

// GoString supports %#v-style debugging output in logs.
func (b Backend) GoString() string {
	return fmt.Sprintf("Backend{%s}", b.String())
}
