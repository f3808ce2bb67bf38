package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kdilshan5712/igolanka-booking/internal/config"
)

func signedToken(t *testing.T, secret string, userID uint, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

func TestJWTMiddleware_SlidingSession(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil)

	t.Run("TokenRenewed", func(t *testing.T) {
		// expires in 11 hours, less than TokenDuration/2
		tokenString := signedToken(t, cfg.JWTSecret, 1, 11*time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: tokenString})
		rr := httptest.NewRecorder()

		var seenToken string
		nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenToken = TokenFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		handler.JWTMiddleware(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				found = true
				if c.Value == tokenString {
					t.Errorf("expected new token value, but got the old one")
				}
				if seenToken != c.Value {
					t.Errorf("expected handler to see the refreshed token")
				}
				break
			}
		}
		if !found {
			t.Errorf("expected new auth_token cookie to be set")
		}
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		// expires in 13 hours, more than TokenDuration/2
		tokenString := signedToken(t, cfg.JWTSecret, 1, 13*time.Hour)

		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: tokenString})
		rr := httptest.NewRecorder()

		nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		handler.JWTMiddleware(nextHandler).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}

		for _, c := range rr.Result().Cookies() {
			if c.Name == "auth_token" {
				t.Errorf("did not expect a new auth_token cookie to be set")
			}
		}
	})
}

func TestJWTMiddleware_Identity(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil)

	run := func(req *http.Request) (uint, bool, int) {
		var (
			userID uint
			ok     bool
		)
		rr := httptest.NewRecorder()
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok = UserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		handler.JWTMiddleware(next).ServeHTTP(rr, req)
		return userID, ok, rr.Code
	}

	t.Run("AnonymousPassesThrough", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		_, ok, code := run(req)
		if ok {
			t.Errorf("expected no user in context")
		}
		if code != http.StatusOK {
			t.Errorf("expected status OK, got %v", code)
		}
	})

	t.Run("BearerHeader", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, cfg.JWTSecret, 42, 20*time.Hour))
		userID, ok, _ := run(req)
		if !ok || userID != 42 {
			t.Errorf("expected user 42, got %d (ok=%v)", userID, ok)
		}
	})

	t.Run("WrongSecretIsAnonymous", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: signedToken(t, "other-secret", 42, 20*time.Hour)})
		_, ok, code := run(req)
		if ok {
			t.Errorf("expected forged token to be ignored")
		}
		if code != http.StatusOK {
			t.Errorf("expected status OK, got %v", code)
		}
	})

	t.Run("ExpiredIsAnonymous", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: signedToken(t, cfg.JWTSecret, 42, -time.Minute)})
		_, ok, _ := run(req)
		if ok {
			t.Errorf("expected expired token to be ignored")
		}
	})
}
