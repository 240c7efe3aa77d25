package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/ResourceImporter/internal/core"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
		wantCtxIP  string
	}{
		{
			name:       "untrusted source keeps remote addr",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "203.0.113.9:4000",
			headers:    map[string]string{"X-Real-IP": "1.2.3.4"},
			want:       "203.0.113.9:4000",
			wantCtxIP:  "203.0.113.9",
		},
		{
			name:       "trusted proxy real ip",
			trusted:    []string{"10.0.0.0/8"},
			remoteAddr: "10.1.2.3:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			want:       "198.51.100.7",
			wantCtxIP:  "198.51.100.7",
		},
		{
			name:       "forwarded for skips trusted hops from the right",
			trusted:    []string{"127.0.0.1", "10.0.0.0/8"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Forwarded-For": "192.0.2.66, 198.51.100.8, 10.0.0.1"},
			want:       "198.51.100.8",
			wantCtxIP:  "198.51.100.8",
		},
		{
			name:       "invalid header ignored",
			trusted:    []string{"127.0.0.1/32"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "not-an-ip"},
			want:       "127.0.0.1:4000",
			wantCtxIP:  "127.0.0.1",
		},
		{
			name:       "invalid trusted entry skipped",
			trusted:    []string{"bogus", "127.0.0.1"},
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			want:       "198.51.100.7",
			wantCtxIP:  "198.51.100.7",
		},
		{
			name:       "no trusted proxies",
			trusted:    nil,
			remoteAddr: "127.0.0.1:4000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.7"},
			want:       "127.0.0.1:4000",
			wantCtxIP:  "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got, gotCtxIP string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
				gotCtxIP = core.GetIPAddressFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCtxIP, gotCtxIP)
		})
	}
}
