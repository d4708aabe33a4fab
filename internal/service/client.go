package service

import (
	"catchall-api/internal/model"
)

// fallbackPeerPort is reported when no transport peer is observable.
const fallbackPeerPort = 8080

type clientSource string

const (
	sourceForwarded clientSource = "forwarded"
	sourcePeer      clientSource = "peer"
	sourceNone      clientSource = "none"
)

// ResolveClient determines the apparent client of a request. A trusted
// Forwarded "for" or X-Forwarded-For value is used verbatim as the IP; the
// port always comes from the transport peer.
func ResolveClient(v *model.RequestView, trust TrustPolicy) model.ClientInfo {
	info, _ := resolveClient(v, trust)
	return info
}

func resolveClient(v *model.RequestView, trust TrustPolicy) (model.ClientInfo, clientSource) {
	info := model.ClientInfo{Port: fallbackPeerPort}

	peerIP, peerPort, hasPeer := splitPeer(v.PeerAddr)
	if hasPeer {
		info.Port = peerPort
	}

	if trust.Trusts(v.PeerAddr) {
		if ip, ok := forwardedClient(v); ok {
			info.RemoteIP = &ip
			return info, sourceForwarded
		}
	}

	if hasPeer {
		info.RemoteIP = &peerIP
		return info, sourcePeer
	}
	return info, sourceNone
}

func forwardedClient(v *model.RequestView) (string, bool) {
	if v.Header == nil {
		return "", false
	}
	if ip, ok := forwardedParam(v.Header, "for"); ok {
		return ip, true
	}
	return firstListValue(v.Header, "X-Forwarded-For")
}
