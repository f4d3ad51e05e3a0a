package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/pkg/clientip"
)

func TestFromRequest(t *testing.T) {
	t.Parallel()

	newRequest := func(remoteAddr string, headers map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remoteAddr
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr fallback",
			remoteAddr: "203.0.113.10:54321",
			want:       "203.0.113.10",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.10",
			want:       "203.0.113.10",
		},
		{
			name:       "x-forwarded-for single",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.7"},
			want:       "198.51.100.7",
		},
		{
			name:       "x-forwarded-for chain takes first valid",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "garbage, 198.51.100.7, 10.0.0.2"},
			want:       "198.51.100.7",
		},
		{
			name:       "x-real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			want:       "198.51.100.9",
		},
		{
			name:       "forwarded-for beats real-ip",
			remoteAddr: "10.0.0.1:1234",
			headers: map[string]string{
				"X-Forwarded-For": "198.51.100.7",
				"X-Real-IP":       "198.51.100.9",
			},
			want: "198.51.100.7",
		},
		{
			name:       "ipv6 normalized",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "invalid header falls through",
			remoteAddr: "203.0.113.10:54321",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "203.0.113.10",
		},
		{
			name:       "nothing valid",
			remoteAddr: "garbage",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, clientip.FromRequest(newRequest(tt.remoteAddr, tt.headers)))
		})
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = clientip.FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.10:54321"
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "203.0.113.10", got)
	require.Empty(t, clientip.FromContext(t.Context()))
}
