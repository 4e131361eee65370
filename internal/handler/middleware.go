package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// AuthMiddleware validates Supabase-issued Bearer tokens (HS256, signed
// with the project JWT secret) and injects the user ID into context.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	keyFunc := func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing authorization token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "invalid token format")
				return
			}

			claims := jwt.MapClaims{}
			_, err := jwt.ParseWithClaims(parts[1], claims, keyFunc,
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			sub, err := claims.GetSubject()
			if err != nil || sub == "" {
				writeError(w, http.StatusUnauthorized, "token has no subject")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// rateLimiter is a fixed-window per-user counter.
type rateLimiter struct {
	mu      sync.Mutex
	counts  map[string]int
	window  time.Time
	perMin  int
	nowFunc func() time.Time
}

func newRateLimiter(perMin int) *rateLimiter {
	return &rateLimiter{
		counts:  make(map[string]int),
		perMin:  perMin,
		nowFunc: time.Now,
	}
}

// allow reports whether the user may proceed, plus the seconds left in
// the current window when they may not.
func (rl *rateLimiter) allow(userID string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFunc()
	windowStart := now.Truncate(time.Minute)
	if !windowStart.Equal(rl.window) {
		rl.window = windowStart
		rl.counts = make(map[string]int)
	}

	if rl.counts[userID] >= rl.perMin {
		retryAfter := int(windowStart.Add(time.Minute).Sub(now).Seconds()) + 1
		return false, retryAfter
	}
	rl.counts[userID]++
	return true, 0
}

// RateLimitMiddleware enforces a per-user request budget per minute.
// Runs after AuthMiddleware so the user ID is available.
func RateLimitMiddleware(perMin int, logger *zap.Logger) func(http.Handler) http.Handler {
	rl := newRateLimiter(perMin)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, retryAfter := rl.allow(userID)
			if !ok {
				logger.Warn("rate limit exceeded",
					zap.String("user_id", userID),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
