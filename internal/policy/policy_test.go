package policy

import (
	"net/http"
	"testing"
)

func TestClassifyDefaultRules(t *testing.T) {
	classifier := NewClassifier(DefaultRules())

	cases := []struct {
		path   string
		method string
		want   TrustLevel
	}{
		{"/api/auth/send-otp", http.MethodPost, Public},
		{"/api/auth/verify-otp", http.MethodPost, Public},
		{"/api/auth/logout", http.MethodPost, Public},
		{"/healthz", http.MethodGet, Public},
		{"/api/cities", http.MethodGet, ReadOnlyPublic},
		{"/api/cities/42", http.MethodGet, ReadOnlyPublic},
		{"/api/listings", http.MethodGet, ReadOnlyPublic},
		// Writes to read-only-public paths fall through to the deny default.
		{"/api/cities", http.MethodPost, Protected},
		{"/api/listings/7", http.MethodDelete, Protected},
		{"/api/user/watchlist/123", http.MethodDelete, Protected},
		{"/my-account", http.MethodGet, Protected},
		// Unlisted paths fail closed.
		{"/api/secret-report", http.MethodGet, Protected},
		{"/", http.MethodGet, Protected},
	}

	for _, tc := range cases {
		if got := classifier.Classify(tc.path, tc.method); got != tc.want {
			t.Errorf("%s %s: expected %s, got %s", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestClassifyMatchesWholeSegments(t *testing.T) {
	classifier := NewClassifier([]Rule{{Prefix: "/api/cities", Level: Public}})

	if got := classifier.Classify("/api/citieslist", http.MethodGet); got != Protected {
		t.Fatalf("substring prefix must not match, got %s", got)
	}
	if got := classifier.Classify("/api/cities/42", http.MethodGet); got != Public {
		t.Fatalf("segment prefix must match, got %s", got)
	}
}

func TestClassifyMostSpecificWins(t *testing.T) {
	classifier := NewClassifier([]Rule{
		{Prefix: "/api", Level: Public},
		{Prefix: "/api/admin", Level: Protected},
	})

	if got := classifier.Classify("/api/admin/users", http.MethodGet); got != Protected {
		t.Fatalf("expected the more specific rule to win, got %s", got)
	}
	if got := classifier.Classify("/api/ping", http.MethodGet); got != Public {
		t.Fatalf("expected the broad rule to apply, got %s", got)
	}
}

func TestClassifyMethodFilter(t *testing.T) {
	classifier := NewClassifier([]Rule{
		{Prefix: "/api/reports", Methods: []string{http.MethodGet, http.MethodHead}, Level: Public},
	})

	if got := classifier.Classify("/api/reports", http.MethodGet); got != Public {
		t.Fatalf("listed method must match, got %s", got)
	}
	if got := classifier.Classify("/api/reports", http.MethodPost); got != Protected {
		t.Fatalf("unlisted method must fall through to deny, got %s", got)
	}
}
