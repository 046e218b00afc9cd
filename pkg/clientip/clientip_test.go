package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meaaditiya/portfoliomanager-sub002/pkg/clientip"
)

func TestGetIPHeaderPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "cloudflare header wins over forwarded-for",
			headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "digitalocean header wins over forwarded-for",
			headers: map[string]string{"DO-Connecting-IP": "203.0.113.8", "X-Forwarded-For": "198.51.100.1"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.8",
		},
		{
			name:    "forwarded-for takes leftmost entry",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2, 10.0.0.3"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.1",
		},
		{
			name:    "real-ip used when forwarded-for absent",
			headers: map[string]string{"X-Real-IP": "198.51.100.9"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.9",
		},
		{
			name:   "remote addr fallback strips port",
			remote: "192.168.1.50:54321",
			want:   "192.168.1.50",
		},
		{
			name:    "malformed forwarded-for falls through",
			headers: map[string]string{"X-Forwarded-For": "not-an-ip"},
			remote:  "192.168.1.50:54321",
			want:    "192.168.1.50",
		},
		{
			name:    "unspecified address rejected",
			headers: map[string]string{"X-Real-IP": "0.0.0.0"},
			remote:  "192.168.1.50:54321",
			want:    "192.168.1.50",
		},
		{
			name:    "ipv4-mapped ipv6 normalized",
			headers: map[string]string{"X-Forwarded-For": "::ffff:192.0.2.1"},
			remote:  "10.0.0.1:1234",
			want:    "192.0.2.1",
		},
		{
			name:   "ipv6 remote addr",
			remote: "[2001:db8::1]:443",
			want:   "2001:db8::1",
		},
		{
			name:   "unparseable remote addr returned verbatim",
			remote: "garbage",
			want:   "garbage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, clientip.GetIP(req))
		})
	}
}

func TestGetIPWhitespaceTolerance(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "  198.51.100.1  , 10.0.0.2")

	assert.Equal(t, "198.51.100.1", clientip.GetIP(req))
}
