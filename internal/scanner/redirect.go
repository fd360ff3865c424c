package scanner

import (
	"context"
	"log/slog"
	"net/url"
)

func isRedirect(code int) bool {
	switch code {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// ResolveRedirects follows same-origin redirects from start with HEAD
// requests and returns the last URL reached. It stops at the first
// non-redirect, missing Location, cross-origin hop, transport error or
// after maxRedirects hops. Errors are never returned: the worst case is
// start itself.
func (r *Requester) ResolveRedirects(ctx context.Context, start string) string {
	current := start
	origin, err := url.Parse(start)
	if err != nil {
		return start
	}

	for hop := 0; hop < r.maxRedirects; hop++ {
		resp, err := r.head(ctx, current)
		if err != nil {
			r.logger.Debug("redirect resolution stopped", slog.String("url", current), slog.String("error", err.Error()))
			return current
		}
		if !isRedirect(resp.StatusCode) {
			return current
		}
		location := resp.Header.Get("Location")
		if location == "" {
			return current
		}

		next, ok := sameOrigin(current, origin.Host, location)
		if !ok {
			r.logger.Debug("cross-origin redirect ignored", slog.String("from", current), slog.String("location", location))
			return current
		}
		r.logger.Debug("redirect followed", slog.Int("hop", hop+1), slog.String("from", current), slog.String("to", next))
		current = next
	}
	return current
}

// sameOrigin resolves location against current. Paths are joined to the
// current scheme and host; absolute URLs are accepted only when their host
// equals originHost.
func sameOrigin(current, originHost, location string) (string, bool) {
	if location[0] == '/' {
		cur, err := url.Parse(current)
		if err != nil {
			return "", false
		}
		return cur.Scheme + "://" + cur.Host + location, true
	}
	loc, err := url.Parse(location)
	if err != nil || loc.Host != originHost {
		return "", false
	}
	return location, true
}
