// Package clientip extracts real client IP addresses from HTTP requests.
//
// Proxy headers are consulted in a fixed priority order: CF-Connecting-IP
// (Cloudflare), DO-Connecting-IP (DigitalOcean), the leftmost entry of
// X-Forwarded-For, X-Real-IP, and finally the connection's RemoteAddr. Every
// candidate is validated and normalized before use; malformed headers are
// skipped rather than trusted.
//
// The extracted address is suitable for rate-limit keying and security
// logging only. Forwarded headers are client-controlled and must never be
// the basis for authorization decisions.
package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Headers checked before falling back to RemoteAddr, in priority order.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"DO-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the client IP address for the request. It never panics and
// always returns a non-empty string: when no header yields a valid address,
// the host portion of RemoteAddr is returned (or RemoteAddr verbatim when
// even that cannot be parsed).
func GetIP(r *http.Request) string {
	for _, header := range proxyHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}

		// X-Forwarded-For may contain "client, proxy1, proxy2"; the leftmost
		// entry is the original client.
		if header == "X-Forwarded-For" {
			value, _, _ = strings.Cut(value, ",")
		}

		if ip, ok := normalize(value); ok {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := normalize(host); ok {
		return ip
	}
	return r.RemoteAddr
}

// normalize validates a candidate address and returns its canonical form.
// IPv4-mapped IPv6 addresses collapse to plain IPv4 so the same client keys
// identically regardless of socket family. Unspecified addresses (0.0.0.0,
// ::) are rejected as they carry no client identity.
func normalize(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	// Candidates copied from RemoteAddr-style sources may carry a port or
	// IPv6 brackets.
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.Trim(s, "[]")

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}

	addr = addr.Unmap()
	if addr.IsUnspecified() {
		return "", false
	}

	return addr.String(), true
}
