package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kdilshan5712/igolanka-booking/internal/models"
)

type contextKey string

const (
	UserIDKey contextKey = "user_id"
	TokenKey  contextKey = "auth_token"
)

func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(UserIDKey).(uint)
	return id, ok
}

func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(TokenKey).(string)
	return token
}

// WithUser returns ctx carrying an authenticated user.
func WithUser(ctx context.Context, userID uint, token string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, TokenKey, token)
}

func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// JWTMiddleware identifies the caller from an X-API-KEY header, the auth_token
// cookie or a bearer header. Anonymous requests pass through; handlers decide
// what needs a user.
func (h *AuthHandler) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("X-API-KEY"); apiKey != "" && h.db != nil {
			if userID, ok := h.lookupAPIKey(r.Context(), apiKey); ok {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, "")))
				return
			}
		}

		tokenString := requestToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, exp, err := h.ParseToken(tokenString)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		// Sliding session: refresh token if it's more than halfway through its duration
		if time.Until(exp) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(userID); err == nil {
				setTokenCookie(w, newToken)
				tokenString = newToken
			}
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, tokenString)))
	})
}

func (h *AuthHandler) ParseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("invalid token claims: user_id")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, time.Time{}, fmt.Errorf("invalid token claims: exp")
	}
	return uint(userIDFloat), exp.Time, nil
}

func (h *AuthHandler) lookupAPIKey(ctx context.Context, key string) (uint, bool) {
	var keyModel models.APIKey
	if err := h.db.WithContext(ctx).Where("key_hash = ?", HashAPIKey(key)).First(&keyModel).Error; err != nil {
		return 0, false
	}
	if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
		return 0, false
	}

	h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", time.Now())
	return keyModel.UserID, true
}

func requestToken(r *http.Request) string {
	if cookie, err := r.Cookie(TokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
