package origin

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateOrigin reports whether s is a well-formed browser origin: an
// absolute http or https URL made of scheme, host and optional port only.
// The returned error wraps ErrMalformedOrigin.
//
// The string is not normalised. Origins are compared and echoed verbatim, so
// "https://A.example" and "https://a.example/" are both rejected rather than
// rewritten.
func ValidateOrigin(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrMalformedOrigin)
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrMalformedOrigin, s, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrMalformedOrigin, s)
	}
	if u.Opaque != "" || u.Host == "" || u.Hostname() == "" {
		return fmt.Errorf("%w: %q: missing host", ErrMalformedOrigin, s)
	}
	if strings.Contains(u.Host, "*") {
		return fmt.Errorf("%w: %q: wildcards are not origins", ErrMalformedOrigin, s)
	}
	if strings.ToLower(u.Host) != u.Host {
		return fmt.Errorf("%w: %q: host must be lower case", ErrMalformedOrigin, s)
	}
	if u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" || u.ForceQuery {
		return fmt.Errorf("%w: %q: must contain only scheme, host and port", ErrMalformedOrigin, s)
	}
	if u.String() != s {
		return fmt.Errorf("%w: %q: not in canonical form", ErrMalformedOrigin, s)
	}
	return nil
}
