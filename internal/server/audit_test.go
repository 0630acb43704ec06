package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 400: "4xx", 404: "4xx", 500: "5xx"}
	for status, want := range cases {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}

func TestResourceTypeForRoute(t *testing.T) {
	cases := map[string]string{
		"/auth/login":           "auth",
		"/api/shares/":          "share",
		"/api/jobs/":            "job",
		"/api/teams/":           "team",
		"/metrics":              "unknown",
	}
	for route, want := range cases {
		if got := resourceTypeForRoute(route); got != want {
			t.Errorf("resourceTypeForRoute(%q) = %q, want %q", route, got, want)
		}
	}
}

func TestAuditableRoute(t *testing.T) {
	if auditableRoute("/metrics") {
		t.Fatalf("expected /metrics to be non-auditable")
	}
	if !auditableRoute("/api/shares/tok1") {
		t.Fatalf("expected share routes to be auditable")
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	if got := clientIP(req); got != "203.0.113.5" {
		t.Fatalf("clientIP: got %q, want forwarded value", got)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "10.0.0.1:1234"
	if got := clientIP(req2); got != "10.0.0.1:1234" {
		t.Fatalf("clientIP: got %q, want remote addr", got)
	}
}
