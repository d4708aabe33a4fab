package service

import (
	"net/http"
	"strings"
)

// NormalizeHeaders lower-cases header names and keeps one value per name.
// net/http lifts Host and Transfer-Encoding out of the header map, so they
// are put back here. Names differing only in case collapse to one entry;
// which value survives depends on map iteration order.
func NormalizeHeaders(h http.Header, host string, transferEncoding []string) map[string]string {
	out := make(map[string]string, len(h)+2)
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = printable(values[len(values)-1])
	}
	if host != "" {
		out["host"] = printable(host)
	}
	if len(transferEncoding) > 0 {
		out["transfer-encoding"] = printable(strings.Join(transferEncoding, ", "))
	}
	return out
}

// printable returns v unchanged when it is visible ASCII (plus space and
// tab) and "" otherwise.
func printable(v string) string {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c != '\t' && (c < 0x20 || c >= 0x7f) {
			return ""
		}
	}
	return v
}
