package ha

import (
	"fmt"
	"strings"
)

// Port is the fixed Home Assistant API port appended to every host
const Port = 8123

// WebSocketPath is the API endpoint path
const WebSocketPath = "/api/websocket"

// CleanHost reduces user input to a bare host: scheme, path and any explicit
// port suffix are removed. The second return value is true when the input
// carried a secure scheme (https or wss).
func CleanHost(host string) (string, bool) {
	h := strings.TrimSpace(host)
	secure := false

	lower := strings.ToLower(h)
	for _, prefix := range []string{"https://", "wss://", "http://", "ws://"} {
		if strings.HasPrefix(lower, prefix) {
			secure = prefix == "https://" || prefix == "wss://"
			h = h[len(prefix):]
			break
		}
	}

	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}

	// Bracketed IPv6 literal, optionally with port
	if strings.HasPrefix(h, "[") {
		if end := strings.Index(h, "]"); end >= 0 {
			return h[:end+1], secure
		}
		return h, secure
	}

	// A single colon starts a port suffix; more than one colon is a bare IPv6
	// address and is left untouched.
	if strings.Count(h, ":") == 1 {
		i := strings.LastIndex(h, ":")
		if port := h[i+1:]; port == "" || isDigits(port) {
			h = h[:i]
		}
	}

	return h, secure
}

// WebSocketURL derives the connection URL for a host. secure selects wss and
// mirrors the transport security of the hosting environment; a secure scheme
// on the host itself also selects wss.
func WebSocketURL(host string, secure bool) string {
	clean, schemeSecure := CleanHost(host)
	if strings.Count(clean, ":") > 1 && !strings.HasPrefix(clean, "[") {
		clean = "[" + clean + "]"
	}

	scheme := "ws"
	if secure || schemeSecure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, clean, Port, WebSocketPath)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
