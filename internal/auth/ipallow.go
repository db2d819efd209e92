package auth

import (
	"net"
	"net/netip"
	"strings"
)

// FallbackClientAddr is reported when no usable client address can be
// resolved from the request context.
const FallbackClientAddr = "0.0.0.0"

// ClientInfo carries the raw origin context of a request as received from
// the transport layer. The core resolves the effective client address from
// it; it never trusts more than the first forwarded-for hop.
type ClientInfo struct {
	ForwardedFor string
	RealIP       string
	RemoteAddr   string
	UserAgent    string
}

// Address resolves the client address with fixed precedence: first
// X-Forwarded-For hop, then X-Real-IP, then the transport peer address,
// then the fallback sentinel.
func (c ClientInfo) Address() string {
	if c.ForwardedFor != "" {
		first := strings.TrimSpace(strings.Split(c.ForwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.RealIP); real != "" {
		return real
	}
	if c.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(c.RemoteAddr); err == nil {
			return host
		}
		return c.RemoteAddr
	}
	return FallbackClientAddr
}

// IPAllowed reports whether clientAddr passes the organization's allow-list.
// An empty list allows everything; otherwise the address must equal one of
// the listed literal addresses or fall inside one of the listed prefixes.
// Unparseable addresses or entries never match and never panic, and an
// address-family mismatch is simply a non-match.
func IPAllowed(clientAddr string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(clientAddr)
	if err != nil {
		return false
	}
	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Contains(addr) {
				return true
			}
			continue
		}
		allowed, err := netip.ParseAddr(entry)
		if err != nil {
			continue
		}
		if allowed == addr {
			return true
		}
	}
	return false
}
