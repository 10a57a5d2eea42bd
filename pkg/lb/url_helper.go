package lb

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/balance/pkg/urlvalue"
)

// parseBackendURL wraps urlvalue.Parse, translating its errors into
// ConfigError per the error taxonomy of spec.md §7 ("MalformedUrl /
// UnknownProtocol ... Surfaced: ConfigError at load").
func parseBackendURL(s string) (urlvalue.URL, error) {
	u, err := urlvalue.Parse(s)
	if err != nil {
		return urlvalue.URL{}, fmt.Errorf("%w: %v", ErrConfigError, err)
	}
	return u, nil
}
