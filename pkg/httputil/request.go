package httputil

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is a set of proxy addresses whose X-Forwarded-For
// entries may be trusted when resolving the request origin.
type TrustedProxies map[string]bool

// NewTrustedProxies builds the set from a list of IP addresses
func NewTrustedProxies(addrs []string) TrustedProxies {
	set := make(TrustedProxies, len(addrs))
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a != "" {
			set[a] = true
		}
	}
	return set
}

// Contains reports whether the address is a trusted proxy
func (t TrustedProxies) Contains(addr string) bool {
	return t[addr]
}

// ClientIP resolves the originating client address for a request.
//
// When the direct peer is a trusted proxy, the X-Forwarded-For chain is
// walked right to left and the first address that is not itself a
// trusted proxy is the origin. When the peer is not trusted the header
// is ignored entirely, since any client can forge it.
func ClientIP(r *http.Request, trusted TrustedProxies) string {
	peer := remoteHost(r.RemoteAddr)
	if len(trusted) == 0 || !trusted.Contains(peer) {
		return peer
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return peer
	}

	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !trusted.Contains(hop) {
			return hop
		}
	}
	// every hop was one of our proxies, fall back to the leftmost entry
	return strings.TrimSpace(hops[0])
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
