package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"threadkeeper/internal/auth"
	"threadkeeper/internal/httputil"
)

// SessionHeader carries the anonymous session ID in both directions.
const SessionHeader = "X-Session-ID"

// Session resolves the caller's session ID and stores it in the request context.
//
// With a verifier, a valid bearer token is required and its subject is the session ID.
// Without one, the X-Session-ID header is used when it holds a UUID; otherwise a new
// ID is generated. The resolved ID is echoed in the X-Session-ID response header.
func Session(verifier auth.TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string

			if verifier != nil {
				token, ok := bearerToken(r)
				if !ok {
					httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
					return
				}
				claims, err := verifier.VerifyToken(token)
				if err != nil {
					httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				sessionID = claims.Subject
			} else {
				sessionID = r.Header.Get(SessionHeader)
				if _, err := uuid.Parse(sessionID); err != nil {
					if sessionID != "" {
						logger.Debug("ignoring malformed session header", "value", sessionID)
					}
					sessionID = uuid.NewString()
				}
			}

			w.Header().Set(SessionHeader, sessionID)
			next.ServeHTTP(w, httputil.WithSessionID(r, sessionID))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
