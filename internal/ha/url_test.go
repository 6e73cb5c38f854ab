package ha

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		secure bool
		want   string
	}{
		{"bare ip", "192.168.1.50", false, "ws://192.168.1.50:8123/api/websocket"},
		{"ip with port", "192.168.1.50:8123", false, "ws://192.168.1.50:8123/api/websocket"},
		{"secure page", "192.168.1.50:8123", true, "wss://192.168.1.50:8123/api/websocket"},
		{"hostname", "homeassistant.local", false, "ws://homeassistant.local:8123/api/websocket"},
		{"other port stripped", "ha.example.com:443", false, "ws://ha.example.com:8123/api/websocket"},
		{"http origin", "http://192.168.1.50:8123", false, "ws://192.168.1.50:8123/api/websocket"},
		{"https origin", "https://ha.example.com", false, "wss://ha.example.com:8123/api/websocket"},
		{"trailing path", "192.168.1.50:8123/lovelace/0", false, "ws://192.168.1.50:8123/api/websocket"},
		{"whitespace", "  192.168.1.50  ", false, "ws://192.168.1.50:8123/api/websocket"},
		{"dangling colon", "192.168.1.50:", false, "ws://192.168.1.50:8123/api/websocket"},
		{"ipv6", "fe80::1", false, "ws://[fe80::1]:8123/api/websocket"},
		{"bracketed ipv6 with port", "[fe80::1]:8123", false, "ws://[fe80::1]:8123/api/websocket"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WebSocketURL(tt.host, tt.secure)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebSocketURL_SinglePort(t *testing.T) {
	hosts := []string{
		"10.0.0.2", "10.0.0.2:8123", "ha.local", "ha.local:8123",
		"http://ha.local:8123", "wss://ha.local:8123/", "[::1]:8123",
	}
	for _, host := range hosts {
		for _, secure := range []bool{false, true} {
			url := WebSocketURL(host, secure)
			assert.Equal(t, 1, strings.Count(url, "8123"), "host %q produced %q", host, url)
			assert.True(t, strings.HasSuffix(url, ":8123/api/websocket"), url)
		}
	}
}

func TestCleanHost(t *testing.T) {
	host, secure := CleanHost("https://ha.example.com:8123/")
	assert.Equal(t, "ha.example.com", host)
	assert.True(t, secure)

	host, secure = CleanHost("192.168.1.50:8123")
	assert.Equal(t, "192.168.1.50", host)
	assert.False(t, secure)
}
