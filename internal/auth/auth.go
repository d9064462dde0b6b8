package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userKey contextKey = "user"

// DefaultCookieName is the cookie the HTML pages read the token from.
const DefaultCookieName = "session"

var (
	ErrMissingToken    = errors.New("missing or malformed Authorization header")
	ErrMissingIdentity = errors.New("token missing email claim")
)

// AuthConfig controls how identity tokens are verified.
type AuthConfig struct {
	// Secret is the HS256 key. When empty, tokens are only accepted if
	// AllowUnsignedTokens is set, and then only with alg=none.
	Secret              string
	AllowUnsignedTokens bool
	// CookieName is checked when no Authorization header is present.
	CookieName string
}

// User is the signed-in user as seen by this service.
type User struct {
	Email string
}

// JWTMiddleware returns HTTP middleware that validates a JWT and places the
// user into the request context. Requests without a valid identity get 401.
func JWTMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := Identify(r, cfg)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprintf(w, `{"error":%q}`, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(NewContextWithUser(r.Context(), user)))
		})
	}
}

// IdentityMiddleware places the user into the context when a valid token is
// present and passes anonymous requests through unchanged.
func IdentityMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, err := Identify(r, cfg); err == nil {
				r = r.WithContext(NewContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Identify extracts and validates the identity token of r.
func Identify(r *http.Request, cfg AuthConfig) (User, error) {
	tokenString, ok := extractToken(r, cfg.CookieName)
	if !ok {
		return User{}, ErrMissingToken
	}

	claims, err := parseToken(tokenString, cfg)
	if err != nil {
		return User{}, err
	}

	email := emailFromClaims(claims)
	if email == "" {
		return User{}, ErrMissingIdentity
	}
	return User{Email: email}, nil
}

// UserFromContext returns the user stored by the middleware.
// The zero User is returned when no identity is present.
func UserFromContext(ctx context.Context) User {
	u, _ := ctx.Value(userKey).(User)
	return u
}

// NewContextWithUser attaches user to ctx. Useful for tests.
func NewContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// extractToken pulls the token from "Authorization: Bearer <token>", falling
// back to the session cookie.
func extractToken(r *http.Request, cookieName string) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// emailFromClaims prefers the "email" claim and falls back to "sub".
func emailFromClaims(claims jwt.MapClaims) string {
	if v, ok := claims["email"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(sub)
}

// parseToken validates the JWT string. Without a secret only alg=none is
// accepted, and only when explicitly allowed. Otherwise HS256 is required.
func parseToken(tokenString string, cfg AuthConfig) (jwt.MapClaims, error) {
	if cfg.Secret == "" {
		if !cfg.AllowUnsignedTokens {
			return nil, fmt.Errorf("no jwt secret configured and unsigned tokens are disabled")
		}
		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
			return jwt.UnsafeAllowNoneSignatureType, nil
		}, jwt.WithValidMethods([]string{"none"}))
		if err != nil {
			return nil, fmt.Errorf("invalid token: %w", err)
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return nil, fmt.Errorf("invalid token claims")
		}
		return claims, nil
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
