package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

type contextKey string

const (
	handshakeContextKey contextKey = "handshake"
	sessionContextKey   contextKey = "session"
)

// HandshakeFromContext returns the handshake credential stored by
// RequireHandshake, or nil when the middleware did not run.
func HandshakeFromContext(ctx context.Context) *token.HandshakeClaims {
	claims, _ := ctx.Value(handshakeContextKey).(*token.HandshakeClaims)
	return claims
}

// SessionFromContext returns the session credential stored by
// RequireSession, or nil when the middleware did not run.
func SessionFromContext(ctx context.Context) *token.SessionClaims {
	claims, _ := ctx.Value(sessionContextKey).(*token.SessionClaims)
	return claims
}

// extractBearerToken pulls the token out of a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireHandshake admits only requests bearing a valid handshake
// credential and stores the decoded claims in the request context.
func RequireHandshake(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := extractBearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, msgUnauthorized, "")
				return
			}

			claims, err := codec.VerifyHandshake(bearer)
			if err != nil {
				writeCredentialError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), handshakeContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession admits only requests bearing a valid session credential
// and stores the decoded claims in the request context.
func RequireSession(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bearer, ok := extractBearerToken(r)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, msgUnauthorized, "")
				return
			}

			claims, err := codec.VerifySession(bearer)
			if err != nil {
				writeCredentialError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeCredentialError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, token.ErrExpiredToken) {
		writeError(w, r, http.StatusForbidden, msgSessionExpired, "")
		return
	}
	writeError(w, r, http.StatusForbidden, msgForbidden, "")
}
