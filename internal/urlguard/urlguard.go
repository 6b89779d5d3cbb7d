// Package urlguard validates user-supplied URLs before any fetch so the
// service cannot be steered at internal or local network targets (SSRF).
package urlguard

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Validation failures. The messages double as the API's 400 detail strings.
var (
	ErrSchemeNotAllowed = errors.New("only http and https URLs are allowed")
	ErrCredentialsInURL = errors.New("URLs with embedded credentials are not allowed")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrHostRequired     = errors.New("URL host is required")
	ErrLocalHost        = errors.New("local/internal hosts are not allowed")
	ErrLocalDomain      = errors.New("local network domains are not allowed")
	ErrBlockedHost      = errors.New("blocked host")
	ErrPrivateIP        = errors.New("private/internal IP addresses are not allowed")
	ErrHostUnresolvable = errors.New("could not resolve host")
	ErrResolvesPrivate  = errors.New("host resolves to private/internal IP")
)

// blockedHostnames are rejected before any resolution happens.
var blockedHostnames = map[string]struct{}{
	"localhost":                {},
	"localhost.localdomain":    {},
	"metadata.google.internal": {},
	"metadata":                 {},
}

// blockedLiterals catches the common SSRF literals even when spelled as a
// hostname rather than parsed as an address.
var blockedLiterals = map[string]struct{}{
	"0.0.0.0":         {},
	"127.0.0.1":       {},
	"169.254.169.254": {},
}

// reservedPrefixes supplements the netip category predicates with ranges
// that are not globally routable but have no dedicated Is* method.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"), // shared address space (CGNAT)
	netip.MustParsePrefix("192.0.0.0/24"),  // IETF protocol assignments
	netip.MustParsePrefix("198.18.0.0/15"), // interconnect benchmarking
	netip.MustParsePrefix("240.0.0.0/4"),   // reserved for future use
}

// Resolver is the lookup surface the gate needs; *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Gate validates URLs against the public-host policy.
type Gate struct {
	resolver Resolver
}

// NewGate builds a Gate. A nil resolver means net.DefaultResolver.
func NewGate(resolver Resolver) *Gate {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Gate{resolver: resolver}
}

// ValidatePublicURL normalizes raw (trims, assumes https when schemeless) and
// returns the safe URL string, or an error naming the first policy violation.
// Hostnames are resolved and every A/AAAA record is checked, so a name that
// points any record at an internal range is rejected (DNS-rebinding defense).
//
// The call blocks on DNS resolution for non-literal hosts; a resolution
// failure is terminal for the request, there are no retries.
func (g *Gate) ValidatePublicURL(ctx context.Context, raw string) (string, error) {
	u, err := normalize(raw)
	if err != nil {
		return "", err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrSchemeNotAllowed
	}
	if u.User != nil {
		return "", ErrCredentialsInURL
	}

	host := strings.ToLower(strings.TrimSpace(u.Hostname()))
	if host == "" {
		return "", ErrHostRequired
	}

	// IDN hosts are checked and resolved in punycode form.
	if ascii, idnaErr := idna.Lookup.ToASCII(host); idnaErr == nil {
		host = ascii
	}

	if err := g.validateHost(ctx, host); err != nil {
		return "", err
	}

	setHostname(u, host)
	return u.String(), nil
}

// normalize trims the input and prepends https:// when no scheme is present,
// mirroring how users type bare hostnames.
func normalize(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidURL
	}
	return u, nil
}

func (g *Gate) validateHost(ctx context.Context, host string) error {
	if _, ok := blockedHostnames[host]; ok {
		return ErrLocalHost
	}
	if strings.HasSuffix(host, ".local") {
		return ErrLocalDomain
	}
	if _, ok := blockedLiterals[host]; ok {
		return ErrBlockedHost
	}

	// Literal addresses are judged directly, no lookup.
	if addr, err := netip.ParseAddr(strings.Trim(host, "[]")); err == nil {
		if isBlockedAddr(addr) {
			return ErrPrivateIP
		}
		return nil
	}

	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil || len(addrs) == 0 {
		return ErrHostUnresolvable
	}
	for _, addr := range addrs {
		if isBlockedAddr(addr) {
			return ErrResolvesPrivate
		}
	}
	return nil
}

// isBlockedAddr reports whether addr belongs to a category that must never
// be fetched: private, loopback, link-local, multicast, reserved, or
// unspecified.
func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsPrivate() || addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() ||
		addr.IsUnspecified() {
		return true
	}
	for _, prefix := range reservedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// setHostname swaps the hostname while keeping any port, re-bracketing
// IPv6 literals as needed.
func setHostname(u *url.URL, host string) {
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
		return
	}
	if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
		return
	}
	u.Host = host
}
