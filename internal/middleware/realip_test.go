package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", "", "::ffff:198.51.100.7", "10.1.2.3/16"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.0.2.1/32"),
		netip.MustParsePrefix("198.51.100.7/32"),
		netip.MustParsePrefix("10.1.0.0/16"),
	}, prefixes)

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestRealIP(t *testing.T) {
	trusted := []netip.Prefix{
		netip.MustParsePrefix("192.0.2.0/24"),
		netip.MustParsePrefix("10.0.0.0/8"),
	}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		header     http.Header
		want       string
	}{
		{
			name:       "no trusted proxies ignores headers",
			remoteAddr: "198.51.100.1:4000",
			header:     http.Header{"X-Forwarded-For": {"203.0.113.9"}},
			want:       "198.51.100.1:4000",
		},
		{
			name:       "untrusted peer ignores headers",
			trusted:    trusted,
			remoteAddr: "198.51.100.1:4000",
			header:     http.Header{"X-Forwarded-For": {"203.0.113.9"}, "X-Real-Ip": {"203.0.113.10"}},
			want:       "198.51.100.1:4000",
		},
		{
			name:       "trusted peer uses forwarded client",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			header:     http.Header{"X-Forwarded-For": {"203.0.113.9"}},
			want:       "203.0.113.9:0",
		},
		{
			name:       "spoofed leftmost hop is skipped",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			header:     http.Header{"X-Forwarded-For": {"1.2.3.4, 203.0.113.9, 10.0.0.5"}},
			want:       "203.0.113.9:0",
		},
		{
			name:       "all hops trusted uses leftmost",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			header:     http.Header{"X-Forwarded-For": {"10.0.0.7, 10.0.0.5"}},
			want:       "10.0.0.7:0",
		},
		{
			name:       "malformed hop keeps peer",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			header:     http.Header{"X-Forwarded-For": {"not-an-ip"}},
			want:       "192.0.2.1:4000",
		},
		{
			name:       "real ip header from trusted peer",
			trusted:    trusted,
			remoteAddr: "192.0.2.1:4000",
			header:     http.Header{"X-Real-Ip": {"203.0.113.10"}},
			want:       "203.0.113.10:0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			handler := RealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.header {
				req.Header[k] = v
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}
