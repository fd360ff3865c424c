package scanner

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidHost is returned for empty or unparseable host strings.
var ErrInvalidHost = errors.New("invalid or empty host")

// NormalizeHost turns a user-supplied host into a base URL with an explicit
// scheme and no trailing slash. https is assumed when no scheme is given.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", ErrInvalidHost
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	host = strings.TrimRight(host, "/")

	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "", ErrInvalidHost
	}
	return host, nil
}
