// Package safeurl canonicalizes user-supplied URLs and rejects targets
// on private networks. Every outbound request driven by user input must
// go through Normalize first.
package safeurl

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Sentinel errors for callers that map failures to HTTP statuses.
var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrForbiddenHost = errors.New("forbidden host")
)

var privateCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(blocks ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, b := range blocks {
		_, n, err := net.ParseCIDR(b)
		if err != nil {
			panic(fmt.Sprintf("safeurl: bad cidr %q: %v", b, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// Parse trims the input, defaults the scheme to https, parses it, and
// rejects non-http(s) schemes and empty hosts. It does NOT apply the
// private-host guard; use Normalize for anything that will be fetched.
func Parse(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidURL)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q not allowed", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// Normalize is Parse plus the private-host guard: the returned URL is
// safe to fetch on behalf of user input.
func Normalize(raw string) (*url.URL, error) {
	u, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	if IsPrivateHostname(u.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrForbiddenHost, u.Hostname())
	}
	return u, nil
}

// IsPrivateHostname reports whether host names a loopback, link-local,
// or RFC1918 destination that must never be fetched on behalf of users.
func IsPrivateHostname(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	switch h {
	case "localhost", "0.0.0.0", "127.0.0.1", "::1":
		return true
	}
	if strings.HasSuffix(h, ".local") {
		return true
	}
	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	if v4 := ip.To4(); v4 != nil {
		for _, block := range privateCIDRs {
			if block.Contains(v4) {
				return true
			}
		}
		return false
	}
	return ip.IsLoopback() || ip.IsLinkLocalUnicast()
}
