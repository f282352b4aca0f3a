package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/dd0wney/cluso-tara/pkg/logging"
)

// ParseTrustedProxies parses a comma-separated list of CIDR ranges or IP addresses.
func ParseTrustedProxies(proxiesStr string) []*net.IPNet {
	var networks []*net.IPNet
	log := logging.DefaultLogger().With(logging.Component("middleware"))

	cidrs := strings.Split(proxiesStr, ",")
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}

		// Handle single IPs by appending /32 or /128
		if !strings.Contains(cidr, "/") {
			ip := net.ParseIP(cidr)
			if ip == nil {
				log.Warn("invalid trusted proxy IP", logging.String("ip", cidr))
				continue
			}
			if ip.To4() != nil {
				cidr = cidr + "/32"
			} else {
				cidr = cidr + "/128"
			}
		}

		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			log.Warn("invalid trusted proxy CIDR", logging.String("cidr", cidr), logging.Error(err))
			continue
		}
		networks = append(networks, network)
	}

	return networks
}

// IsTrustedProxyIn checks if the given remote address is in the provided networks.
func IsTrustedProxyIn(remoteAddr string, trustedNetworks []*net.IPNet) bool {
	if len(trustedNetworks) == 0 {
		return false
	}

	// Extract IP from host:port format
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// Maybe it's just an IP without port
		host = remoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, network := range trustedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetClientIP extracts the client IP address from a request.
// SECURITY: Only trusts X-Forwarded-For and X-Real-IP headers when the request
// comes from a configured trusted proxy. This prevents IP spoofing attacks.
func GetClientIP(r *http.Request, trustedNetworks []*net.IPNet) string {
	// Only trust forwarding headers if request is from a trusted proxy
	if IsTrustedProxyIn(r.RemoteAddr, trustedNetworks) {
		// Try X-Real-IP first (typically set by nginx)
		if ip := r.Header.Get("X-Real-IP"); ip != "" {
			if parsedIP := net.ParseIP(strings.TrimSpace(ip)); parsedIP != nil {
				return parsedIP.String()
			}
		}

		// Try X-Forwarded-For (may contain multiple IPs: client, proxy1, proxy2...)
		// The leftmost IP is the original client
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if len(parts) > 0 {
				clientIP := strings.TrimSpace(parts[0])
				if parsedIP := net.ParseIP(clientIP); parsedIP != nil {
					return parsedIP.String()
				}
			}
		}
	}

	// Fall back to direct connection IP (always trusted)
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might be just an IP without port in some cases
		return r.RemoteAddr
	}
	return host
}
