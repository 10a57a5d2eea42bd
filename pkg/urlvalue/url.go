// Package urlvalue implements the immutable URL value used by Backend and
// the selector family: parse, structural equality, and default-port
// resolution by scheme.
package urlvalue

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrMalformedURL is returned when the input string does not match the
// expected absolute-URL shape.
var ErrMalformedURL = errors.New("urlvalue: malformed url")

// ErrUnknownProtocol is returned when the protocol has no default port and
// none was given explicitly.
var ErrUnknownProtocol = errors.New("urlvalue: unknown protocol with no explicit port")

// defaultPort maps a scheme to its default port, mirroring the original
// implementation's static table.
var defaultPort = map[string]int{
	"http":  80,
	"https": 443,
	"ftp":   21,
	"ssh":   22,
}

// urlPattern recognizes: optional scheme://, required host, optional
// :port (2-5 digits), optional path, optional ?query, optional #fragment.
var urlPattern = regexp.MustCompile(
	`^((\w+)://)?([^/\s:]+)(:(\d{2,5}))?([^?\s#]*)(\?([^\s#]*))?(#([^\s]*))?$`,
)

// URL is an immutable absolute-URL value. All fields are textual; Port is
// the resolved numeric port (never zero after a successful Parse).
type URL struct {
	Protocol string
	Hostname string
	Port     int
	Path     string
	Query    string
	Fragment string
}

// Parse matches s against the URL grammar and resolves scheme/port
// defaults. Missing protocol defaults to "http"; missing port resolves
// from defaultPort, failing with ErrUnknownProtocol if the scheme isn't
// in the table.
func Parse(s string) (URL, error) {
	m := urlPattern.FindStringSubmatch(s)
	if m == nil {
		return URL{}, fmt.Errorf("%w: %q", ErrMalformedURL, s)
	}

	protocol := m[2]
	if protocol == "" {
		protocol = "http"
	}

	var port int
	if m[5] != "" {
		p, err := strconv.Atoi(m[5])
		if err != nil {
			return URL{}, fmt.Errorf("%w: %q", ErrMalformedURL, s)
		}
		port = p
	} else {
		p, ok := defaultPort[protocol]
		if !ok {
			return URL{}, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
		}
		port = p
	}

	return URL{
		Protocol: protocol,
		Hostname: m[3],
		Port:     port,
		Path:     m[6],
		Query:    m[8],
		Fragment: m[10],
	}, nil
}

// IsURL reports whether s matches the URL grammar at all. Backend
// configuration does not call it: pkg/lb picks the URL variant from the
// endpoint's url key.
func IsURL(s string) bool {
	return urlPattern.MatchString(s)
}

// Equal reports structural equality across all six fields.
func (u URL) Equal(other URL) bool {
	return u == other
}

// String renders the canonical form. The port is included whenever it
// differs from the scheme default (or the scheme has none); since URL
// does not track whether the port was explicit in the input, String
// always omits the port when it equals the scheme default, which keeps Parse/String a
// round trip for the common case of default-port input (Testable
// Property 7).
func (u URL) String() string {
	s := u.Protocol + "://" + u.Hostname
	if dp, ok := defaultPort[u.Protocol]; !ok || dp != u.Port {
		s += ":" + strconv.Itoa(u.Port)
	}
	s += u.Path
	if u.Query != "" {
		s += "?" + u.Query
	}
	if u.Fragment != "" {
		s += "#" + u.Fragment
	}
	return s
}
