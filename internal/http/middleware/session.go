package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sajilotech/frontdesk/internal/http/response"
	"github.com/sajilotech/frontdesk/internal/session"
	"github.com/sajilotech/frontdesk/pkg/auth"
	"github.com/sajilotech/frontdesk/pkg/logger"
)

type ctxKey string

const CtxSession ctxKey = "session"

// SessionTransport carries the session key across requests in a signed
// cookie. Every request rolls the cookie forward, so expiry tracks the
// last interaction, not the first.
type SessionTransport struct {
	registry   *session.Registry
	secret     string
	ttl        time.Duration
	cookieName string
	secure     bool
}

func NewSessionTransport(registry *session.Registry, secret string, ttl time.Duration, cookieName string, secure bool) *SessionTransport {
	return &SessionTransport{
		registry:   registry,
		secret:     secret,
		ttl:        ttl,
		cookieName: cookieName,
		secure:     secure,
	}
}

// Middleware resolves the request's session, minting one when the cookie
// is absent, invalid, or names an expired session.
func (t *SessionTransport) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, _ := t.ResolveKey(r)

			sess, _, err := t.registry.GetOrCreate(r.Context(), key, r.UserAgent(), getClientIP(r))
			if err != nil {
				response.InternalError(w, "could not resolve session")
				return
			}

			if err := t.IssueCookie(w, sess.Key); err != nil {
				logger.ErrorContext(r.Context(), "failed to issue session cookie", "error", err)
				response.InternalError(w, "could not issue session")
				return
			}

			ctx := context.WithValue(r.Context(), CtxSession, sess)
			ctx = context.WithValue(ctx, logger.SessionIDKey, sess.Key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ResolveKey extracts and verifies the session key from the request cookie
// without touching the registry.
func (t *SessionTransport) ResolveKey(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(t.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	claims, err := auth.Parse(cookie.Value, t.secret)
	if err != nil {
		return "", false
	}
	return claims.SessionID, true
}

// IssueCookie writes a fresh signed session cookie for the key.
func (t *SessionTransport) IssueCookie(w http.ResponseWriter, key string) error {
	token, err := auth.NewSessionToken(key, t.secret, t.ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     t.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(t.ttl.Seconds()),
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SessionFrom returns the session resolved by the transport middleware.
func SessionFrom(r *http.Request) *session.Session {
	if v := r.Context().Value(CtxSession); v != nil {
		if s, ok := v.(*session.Session); ok {
			return s
		}
	}
	return nil
}

// getClientIP extracts the real client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
