package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIPFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "first forwarded hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.2:5000", want: "203.0.113.7"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remote: "10.0.0.2:5000", want: "198.51.100.4"},
		{name: "remote address ipv4", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote address ipv6", remote: "[::1]:8080", want: "::1"},
		{name: "remote address without port", remote: "192.0.2.9", want: "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadataStoresIP(t *testing.T) {
	var got string
	h := ClientMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetClientIP(r.Context())
	}))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.1", got)
}
