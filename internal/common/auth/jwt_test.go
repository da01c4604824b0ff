package auth

import (
	"testing"
	"time"

	"github.com/AutoDreams/AutoDreams/internal/common/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "autodreams",
		Audience:  "autodreams-app",
	}
}

func TestGenerateAndParseAccessToken(t *testing.T) {
	cfg := testAuthConfig()

	token, exp, err := GenerateAccessToken(cfg, "user-1", []string{"client"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expected expiresAt in the future, got %v", exp)
	}

	ai, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if ai.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %s", ai.Subject)
	}
	if !ai.HasRole("client") {
		t.Fatalf("expected role client")
	}
	if ai.HasRole("employee") {
		t.Fatalf("unexpected role employee")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := GenerateAccessToken(cfg, "user-1", []string{"client"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := cfg
	other.JWTSecret = "another-secret"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected parse to fail with wrong secret")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	cfg := testAuthConfig()
	token, _, err := GenerateAccessToken(cfg, "user-1", nil, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatalf("expected parse to fail with wrong issuer")
	}
}

func TestGenerateAccessTokenRequiresSubjectAndSecret(t *testing.T) {
	cfg := testAuthConfig()
	if _, _, err := GenerateAccessToken(cfg, "", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty subject")
	}
	cfg.JWTSecret = ""
	if _, _, err := GenerateAccessToken(cfg, "user-1", nil, time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
