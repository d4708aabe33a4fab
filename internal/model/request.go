// Package model defines shared types for the capture pipeline.
package model

import (
	"net/http"
)

// RequestView is the transport-independent view of an inbound request
// that the capture pipeline works on. Body is fully buffered.
type RequestView struct {
	Method string
	Path   string
	Host   string
	TLS    bool
	Header http.Header
	Body   []byte

	// RawQuery is the query string as received, without the leading "?".
	RawQuery string

	// PeerAddr is the transport peer as host:port. Empty when no peer is
	// observable (e.g. the pipeline is invoked outside a listener).
	PeerAddr string

	// TransferEncoding holds the encodings net/http removed from Header.
	TransferEncoding []string
}
