package service

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
)

// TrustPolicy decides whether forwarding headers sent by a peer are honored.
// An empty policy trusts every peer.
type TrustPolicy struct {
	proxies []netip.Prefix
}

// NewTrustPolicy parses trusted proxy ranges. Entries are CIDR prefixes or
// bare addresses.
func NewTrustPolicy(cidrs []string) (TrustPolicy, error) {
	var p TrustPolicy
	for _, s := range cidrs {
		pfx, err := ParseProxy(s)
		if err != nil {
			return TrustPolicy{}, err
		}
		p.proxies = append(p.proxies, pfx)
	}
	return p, nil
}

// ParseProxy parses a trusted proxy entry into a prefix.
func ParseProxy(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if pfx, err := netip.ParsePrefix(s); err == nil {
		return pfx.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("trusted proxy %q is neither a CIDR nor an IP address", s)
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Trusts reports whether forwarding headers from peerAddr are honored.
func (p TrustPolicy) Trusts(peerAddr string) bool {
	if len(p.proxies) == 0 {
		return true
	}
	host, _, ok := splitPeer(peerAddr)
	if !ok {
		return false
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	ip = ip.Unmap()
	for _, pfx := range p.proxies {
		if pfx.Contains(ip) {
			return true
		}
	}
	return false
}

// splitPeer splits a transport address into its IP and port.
func splitPeer(addr string) (string, uint16, bool) {
	if addr == "" {
		return "", 0, false
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return "", 0, false
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, false
	}
	return host, uint16(port), true
}

// forwardedParam returns the first value of key across all elements of the
// RFC 7239 Forwarded headers, with surrounding quotes removed.
func forwardedParam(h http.Header, key string) (string, bool) {
	for _, line := range h.Values("Forwarded") {
		for _, elem := range strings.Split(line, ",") {
			for _, pair := range strings.Split(elem, ";") {
				name, val, found := strings.Cut(strings.TrimSpace(pair), "=")
				if !found || !strings.EqualFold(strings.TrimSpace(name), key) {
					continue
				}
				val = strings.Trim(strings.TrimSpace(val), `"`)
				if val != "" {
					return val, true
				}
			}
		}
	}
	return "", false
}

// firstListValue returns the first comma-separated entry of a header.
func firstListValue(h http.Header, name string) (string, bool) {
	v := h.Get(name)
	if v == "" {
		return "", false
	}
	first, _, _ := strings.Cut(v, ",")
	first = strings.TrimSpace(first)
	return first, first != ""
}
