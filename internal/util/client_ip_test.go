package util

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func mustProxies(t *testing.T, entries ...string) *TrustedProxies {
	t.Helper()
	p, err := NewTrustedProxies(entries)
	if err != nil {
		t.Fatalf("trusted proxies %v: %v", entries, err)
	}
	return p
}

func TestClientIPIgnoresHeadersFromUntrustedPeers(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/jobs/abc/view", nil)
	req.RemoteAddr = "198.51.100.10:51000"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	req.Header.Set("X-Real-IP", "203.0.113.6")

	if got := ClientIP(req, nil); got != "198.51.100.10" {
		t.Fatalf("no proxies configured: got %q", got)
	}
	if got := ClientIP(req, mustProxies(t, "10.0.0.0/8")); got != "198.51.100.10" {
		t.Fatalf("spoofed header from untrusted peer: got %q", got)
	}
}

func TestClientIPBehindLoadBalancer(t *testing.T) {
	lb := mustProxies(t, "10.0.0.0/8", "192.168.1.10")
	cases := map[string]struct {
		remote string
		xff    string
		xrip   string
		want   string
	}{
		"single hop":            {remote: "10.1.2.3:443", xff: "203.0.113.5", want: "203.0.113.5"},
		"proxy chain":           {remote: "192.168.1.10:443", xff: "198.51.100.77, 10.9.9.9", want: "198.51.100.77"},
		"client spoofs prefix":  {remote: "10.1.2.3:443", xff: "1.1.1.1, 203.0.113.8, 10.0.0.1", want: "203.0.113.8"},
		"real ip fallback":      {remote: "10.1.2.3:443", xff: "garbage", xrip: "203.0.113.9", want: "203.0.113.9"},
		"mapped peer":           {remote: "[::ffff:10.1.2.3]:443", xff: "203.0.113.10", want: "203.0.113.10"},
		"only internal hops":    {remote: "10.1.2.3:443", xff: "10.0.0.7, 10.0.0.8", want: "10.0.0.7"},
		"no headers at all":     {remote: "10.1.2.3:443", want: "10.1.2.3"},
		"remote without a port": {remote: "198.51.100.20", want: "198.51.100.20"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/jobs", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xrip != "" {
				req.Header.Set("X-Real-IP", tc.xrip)
			}
			if got := ClientIP(req, lb); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTrustedProxiesParsing(t *testing.T) {
	p := mustProxies(t, " 172.16.0.0/12 ", "2001:db8::1")
	if !p.Contains(netip.MustParseAddr("172.20.1.1")) {
		t.Fatal("expected address inside CIDR to be trusted")
	}
	if !p.Contains(netip.MustParseAddr("2001:db8::1")) || p.Contains(netip.MustParseAddr("2001:db8::2")) {
		t.Fatal("bare IP should trust exactly one address")
	}
	for _, bad := range []string{"not-an-ip", "10.0.0.0/40"} {
		if _, err := NewTrustedProxies([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
	if got := mustProxies(t, "", "  "); got != nil {
		t.Fatalf("blank entries should yield nil, got %+v", got)
	}
	var none *TrustedProxies
	if none.Contains(netip.MustParseAddr("10.0.0.1")) {
		t.Fatal("nil set trusts nothing")
	}
}
