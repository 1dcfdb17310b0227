package auth

import (
	"testing"
	"time"

	"crmdesk/config"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	cfg := &config.SessionConfig{Secret: "s3cret", Issuer: "crmdesk"}
	tok, err := GenerateSessionToken(cfg, "sid-1", 42, "staff", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseSessionToken(cfg, tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.SessionID != "sid-1" || claims.UserID != 42 || claims.Role != "staff" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseSessionTokenRejects(t *testing.T) {
	cfg := &config.SessionConfig{Secret: "s3cret", Issuer: "crmdesk"}
	expired, _ := GenerateSessionToken(cfg, "sid", 1, "admin", time.Now().Add(-time.Minute))
	otherKey, _ := GenerateSessionToken(&config.SessionConfig{Secret: "other", Issuer: "crmdesk"}, "sid", 1, "admin", time.Now().Add(time.Hour))
	otherIssuer, _ := GenerateSessionToken(&config.SessionConfig{Secret: "s3cret", Issuer: "elsewhere"}, "sid", 1, "admin", time.Now().Add(time.Hour))
	noSession, _ := GenerateSessionToken(cfg, "", 1, "admin", time.Now().Add(time.Hour))

	tests := map[string]string{
		"expired":      expired,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"no session":   noSession,
		"garbage":      "not.a.jwt",
		"empty":        "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseSessionToken(cfg, tok); err != ErrInvalidToken {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
