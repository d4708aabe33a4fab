package service

import (
	"strconv"
	"strings"

	"catchall-api/internal/model"
)

// EffectiveScheme returns the scheme the client used, honoring trusted
// Forwarded "proto" and X-Forwarded-Proto headers.
func EffectiveScheme(v *model.RequestView, trust TrustPolicy) string {
	if v.Header != nil && trust.Trusts(v.PeerAddr) {
		if proto, ok := forwardedParam(v.Header, "proto"); ok {
			return proto
		}
		if proto, ok := firstListValue(v.Header, "X-Forwarded-Proto"); ok {
			return proto
		}
	}
	if v.TLS {
		return "https"
	}
	return "http"
}

// EffectiveHost returns the host the client addressed, honoring trusted
// Forwarded "host" and X-Forwarded-Host headers.
func EffectiveHost(v *model.RequestView, trust TrustPolicy) string {
	if v.Header != nil && trust.Trusts(v.PeerAddr) {
		if host, ok := forwardedParam(v.Header, "host"); ok {
			return host
		}
		if host, ok := firstListValue(v.Header, "X-Forwarded-Host"); ok {
			return host
		}
	}
	return v.Host
}

// ReconstructURL builds the URL seen by the server. The path is passed through
// untouched; an absent or malformed port becomes 0.
func ReconstructURL(scheme, host, path string) model.URLInfo {
	hostname, port := splitHost(host)
	return model.URLInfo{
		Scheme:   scheme,
		Hostname: hostname,
		Port:     port,
		Path:     path,
	}
}

// splitHost splits host on the first colon. Bracketed IPv6 literals are split
// after the closing bracket.
func splitHost(host string) (string, uint16) {
	name, rest := host, ""
	if strings.HasPrefix(host, "[") {
		if end := strings.IndexByte(host, ']'); end > 0 {
			name, rest = host[1:end], host[end+1:]
			if !strings.HasPrefix(rest, ":") {
				return name, 0
			}
			rest = rest[1:]
		}
	} else if i := strings.IndexByte(host, ':'); i >= 0 {
		name, rest = host[:i], host[i+1:]
	}

	port, err := strconv.ParseUint(rest, 10, 16)
	if err != nil {
		return name, 0
	}
	return name, uint16(port)
}
