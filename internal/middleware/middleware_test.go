package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/docschema/internal/requestinfo"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true, ok)

	cases := []struct {
		name   string
		host   string
		tls    bool
		proto  string
		status int
	}{
		{"plain http redirects", "api.example.com", false, "", http.StatusPermanentRedirect},
		{"tls passes", "api.example.com", true, "", http.StatusTeapot},
		{"proxy https passes", "api.example.com", false, "https", http.StatusTeapot},
		{"localhost passes", "localhost:8080", false, "", http.StatusTeapot},
		{"loopback ip passes", "127.0.0.1:8080", false, "", http.StatusTeapot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/api/user?limit=1", nil)
			r.Host = tc.host
			if tc.tls {
				r.TLS = &tls.ConnectionState{}
			}
			if tc.proto != "" {
				r.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.status == http.StatusPermanentRedirect {
				if loc := w.Header().Get("Location"); loc != "https://api.example.com/api/user?limit=1" {
					t.Fatalf("Location = %q", loc)
				}
			}
		})
	}
}

func TestForceHTTPS_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	ForceHTTPS(false, ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.example.com/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSecurity(t *testing.T) {
	h := Security(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "max-age=60" {
		t.Fatalf("handler override lost: Cache-Control = %q", got)
	}
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core).Sugar()

	h := requestinfo.Enrich(RequestLog(log)(ok))
	r := httptest.NewRequest(http.MethodPost, "/api/user", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["path"] != "/api/user" || fields["ip"] != "203.0.113.9" {
		t.Fatalf("fields = %v", fields)
	}
}
