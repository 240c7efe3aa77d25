package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

// TrustedRealIP rewrites RemoteAddr to the client address reported by a
// trusted proxy and stores it in the request context for run logging.
//
// Headers are honoured only when the connection comes from one of
// trustedCIDRs. X-Real-IP wins; otherwise X-Forwarded-For is walked from
// the right and the first hop that is not itself a trusted proxy is used,
// so a client cannot prepend a forged address.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	trusted := parseTrusted(trustedCIDRs)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if peer, ok := parseAddr(r.RemoteAddr); ok && trusted.contains(peer) {
				if client, ok := trusted.clientFrom(r.Header); ok {
					r.RemoteAddr = client.String()
				}
			}

			ip := r.RemoteAddr
			if addr, ok := parseAddr(r.RemoteAddr); ok {
				ip = addr.String()
			}
			ctx := core.ContextWithIPAddress(r.Context(), ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type trustedNets []netip.Prefix

// parseTrusted accepts CIDRs and bare addresses. Invalid entries are
// logged and skipped.
func parseTrusted(entries []string) trustedNets {
	var nets trustedNets
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			nets = append(nets, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry, "error", err)
			continue
		}
		nets = append(nets, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return nets
}

func (t trustedNets) contains(addr netip.Addr) bool {
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientFrom extracts the client address from proxy headers.
func (t trustedNets) clientFrom(h http.Header) (netip.Addr, bool) {
	if rip := strings.TrimSpace(h.Get("X-Real-IP")); rip != "" {
		return parseAddr(rip)
	}

	hops := strings.Split(h.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseAddr(strings.TrimSpace(hops[i]))
		if !ok {
			return netip.Addr{}, false
		}
		if !t.contains(addr) {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// parseAddr parses "host:port" or a bare address.
func parseAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
