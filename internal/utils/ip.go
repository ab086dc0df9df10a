package utils

import (
	"net"
	"net/http"
	"strings"
)

// IsAllowedIP checks whether ip falls inside one of allowedCIDRs. Bare
// addresses in the list are matched exactly.
func IsAllowedIP(ip string, allowedCIDRs []string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}

	for _, cidr := range allowedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if !strings.Contains(cidr, "/") {
			if single := net.ParseIP(cidr); single != nil && single.Equal(parsed) {
				return true
			}
			continue
		}

		_, netblock, err := net.ParseCIDR(cidr)
		if err != nil {
			// Skip invalid CIDR
			continue
		}
		if netblock.Contains(parsed) {
			return true
		}
	}
	return false
}

// ClientIP returns the first X-Forwarded-For hop, or the host of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
