package stratum

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestParseURLLocalForms(t *testing.T) {
	tests := []struct {
		raw        string
		wantScheme string
		wantPath   string
	}{
		{"/var/lib/app.db", "file", "/var/lib/app.db"},
		{":memory:", "file", ":memory:"},
		{"file:/var/lib/app.db", "file", "/var/lib/app.db"},
		{"sqlite:app.db", "sqlite", "app.db"},
		{"duckdb:warehouse.duckdb", "duckdb", "warehouse.duckdb"},
	}
	for _, tt := range tests {
		cfg, err := ParseURL(tt.raw)
		if err != nil {
			t.Fatalf("ParseURL(%q) failed: %v", tt.raw, err)
		}
		if cfg.Scheme != tt.wantScheme || cfg.Path != tt.wantPath {
			t.Errorf("ParseURL(%q) = {%s %s}, want {%s %s}",
				tt.raw, cfg.Scheme, cfg.Path, tt.wantScheme, tt.wantPath)
		}
	}
}

func TestParseURLRemoteForms(t *testing.T) {
	cfg, err := ParseURL("stratum://db.example.com?jwt=opaque-token")
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	if cfg.Addr != "db.example.com:5433" {
		t.Errorf("Expected default port appended, got %q", cfg.Addr)
	}
	if cfg.AuthToken != "opaque-token" {
		t.Errorf("Expected token extracted, got %q", cfg.AuthToken)
	}
	if cfg.TLS {
		t.Error("stratum scheme should not enable TLS")
	}

	cfg, err = ParseURL("http://db.example.com:8080/v1?authToken=abc&queryURL=http://db.example.com:8080/v1/query")
	if err != nil {
		t.Fatalf("ParseURL failed: %v", err)
	}
	if cfg.URL != "http://db.example.com:8080/v1" {
		t.Errorf("Auth parameters should be stripped from the endpoint, got %q", cfg.URL)
	}
	if cfg.AuthToken != "abc" {
		t.Errorf("Expected authToken extracted, got %q", cfg.AuthToken)
	}
	if cfg.QueryURL != "http://db.example.com:8080/v1/query" {
		t.Errorf("Expected queryURL extracted, got %q", cfg.QueryURL)
	}
}

func TestParseURLUnsupportedScheme(t *testing.T) {
	_, err := ParseURL("ftp://host/db")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for ftp scheme, got %v", err)
	}
}

func TestParseURLEmptyDescriptor(t *testing.T) {
	if _, err := ParseURL("   "); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for empty descriptor, got %v", err)
	}
}

func TestSecureSchemesRequireToken(t *testing.T) {
	for _, raw := range []string{"https://db.example.com", "stratums://db.example.com"} {
		if _, err := ParseURL(raw); !errors.Is(err, ErrConfiguration) {
			t.Errorf("ParseURL(%q) without token: expected ErrConfiguration, got %v", raw, err)
		}
	}
	if _, err := ParseURL("https://db.example.com?jwt=tok"); err != nil {
		t.Errorf("ParseURL with token failed: %v", err)
	}
}

func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": expiry.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestExpiredJWTRejectedBeforeDial(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Hour))
	_, err := ParseURL("stratums://db.example.com?jwt=" + expired)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for expired token, got %v", err)
	}
}

func TestLiveJWTAccepted(t *testing.T) {
	live := signedToken(t, time.Now().Add(time.Hour))
	cfg, err := ParseURL("stratums://db.example.com?jwt=" + live)
	if err != nil {
		t.Fatalf("Live token rejected: %v", err)
	}
	if cfg.AuthToken != live {
		t.Error("Token not carried into the config")
	}
}

func TestOpaqueTokenPassesThrough(t *testing.T) {
	cfg, err := ParseURL("https://db.example.com?jwt=not.a-jwt")
	if err != nil {
		t.Fatalf("Opaque token rejected: %v", err)
	}
	if cfg.AuthToken != "not.a-jwt" {
		t.Errorf("Opaque token altered: %q", cfg.AuthToken)
	}
}
