package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	const console = "https://vocalia-console.example.com"

	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
		wantNext   bool
	}{
		{name: "configured origin", allowed: []string{console}, method: http.MethodGet, origin: console, wantOrigin: console, wantStatus: http.StatusOK, wantNext: true},
		{name: "unconfigured origin", allowed: []string{"https://allowed.example.com"}, method: http.MethodGet, origin: console, wantStatus: http.StatusOK, wantNext: true},
		{name: "wildcard preflight", allowed: []string{"*"}, method: http.MethodOptions, origin: console, preflight: true, wantOrigin: "*", wantStatus: http.StatusNoContent},
		{name: "no origin header", allowed: []string{console}, method: http.MethodPost, wantStatus: http.StatusOK, wantNext: true},
		{name: "nothing configured", allowed: []string{" "}, method: http.MethodGet, origin: console, wantStatus: http.StatusOK, wantNext: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/v1/matches/m-1/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			CORS(tt.allowed, next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Fatalf("unexpected Access-Control-Allow-Origin: %q", got)
			}
			if called != tt.wantNext {
				t.Fatalf("expected next called=%t, got %t", tt.wantNext, called)
			}
		})
	}
}

func TestOriginSet_Allows(t *testing.T) {
	set := newOriginSet([]string{" https://a.example.com ", ""})
	if !set.allows("https://a.example.com") || set.allows("https://b.example.com") {
		t.Fatalf("unexpected origin matching for %+v", set)
	}
	if !newOriginSet([]string{"*"}).allows("https://anything.example.com") {
		t.Fatalf("wildcard should allow any origin")
	}
}
