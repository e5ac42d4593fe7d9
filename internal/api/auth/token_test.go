package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/codr1/courtbook/internal/api/authz"
)

func TestVerifyRoundTrip(t *testing.T) {
	v := NewTokenVerifier("secret")
	token, err := v.Issue(authz.AuthUser{ID: 42, Email: "pat@example.com", Role: "owner"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	user, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.ID != 42 || user.Email != "pat@example.com" || user.Role != authz.RoleOwner {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewTokenVerifier("secret")

	other, _ := NewTokenVerifier("other").Issue(authz.AuthUser{ID: 1}, time.Hour)
	expired, _ := v.Issue(authz.AuthUser{ID: 1}, -time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Role: "USER"}).SignedString([]byte("secret"))
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte("secret"))

	cases := map[string]string{
		"wrong secret": other,
		"expired":      expired,
		"no subject":   noSubject,
		"wrong alg":    wrongAlg,
		"garbage":      "not.a.token",
		"empty":        "",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if _, err := BearerToken(r); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}

	r.Header.Set("Authorization", "Basic abc")
	if _, err := BearerToken(r); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	r.Header.Set("Authorization", "bearer  tok123 ")
	token, err := BearerToken(r)
	if err != nil || token != "tok123" {
		t.Fatalf("token = %q, err = %v", token, err)
	}
}
