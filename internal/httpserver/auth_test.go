package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestValidateSignup(t *testing.T) {
	cases := []struct {
		name     string
		username string
		password string
		ok       bool
	}{
		{"valid", "player_1", "longenough", true},
		{"short username", "ab", "longenough", false},
		{"bad chars", "player!", "longenough", false},
		{"short password", "player_1", "short", false},
		{"long username", "aaaaaaaaaaaaaaaaaaaaaaaaa", "longenough", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSignup(tc.username, tc.password)
			if (err == nil) != tc.ok {
				t.Errorf("validateSignup(%q, %q) = %v, want ok=%v", tc.username, tc.password, err, tc.ok)
			}
		})
	}
}

func TestSignJWTRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test_secret")

	tok, exp, err := signJWT(42, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if exp.IsZero() {
		t.Error("expiry not set")
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test_secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	if id, _ := claims["id"].(float64); int64(id) != 42 {
		t.Errorf("id claim = %v, want 42", claims["id"])
	}
	if claims["username"] != "alice" {
		t.Errorf("username claim = %v, want alice", claims["username"])
	}
}

func TestBearerOrCookie(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("Authorization", "Bearer abc123")
		if got := bearerOrCookie(r); got != "abc123" {
			t.Errorf("got %q, want abc123", got)
		}
	})

	t.Run("cookie fallback", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.AddCookie(&http.Cookie{Name: "bingo_token", Value: "fromcookie"})
		if got := bearerOrCookie(r); got != "fromcookie" {
			t.Errorf("got %q, want fromcookie", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		if got := bearerOrCookie(r); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
