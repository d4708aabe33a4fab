package model

// CatchallResponse is the JSON document returned for every captured request.
type CatchallResponse struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Client      ClientInfo        `json:"client"`
	URL         URLInfo           `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	Body        Body              `json:"body"`
}

// ClientInfo describes the apparent client. RemoteIP is nil when neither a
// trusted forwarding header nor a peer address is available.
type ClientInfo struct {
	RemoteIP *string `json:"remote_ip"`
	Port     uint16  `json:"port"`
}

// URLInfo is the URL as seen by the server.
type URLInfo struct {
	Scheme   string `json:"scheme"`
	Hostname string `json:"hostname"`
	Port     uint16 `json:"port"`
	Path     string `json:"path"`
}

// Body carries the request body twice: JSON holds the parsed document when
// the bytes are valid JSON, Raw is always the base64 of the exact bytes.
type Body struct {
	JSON any    `json:"json"`
	Raw  string `json:"raw"`
}
