package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/allthingssecurity/shares/src/logger"
	"github.com/allthingssecurity/shares/src/security"
)

type contextKey string

const sessionIDKey = contextKey("sessionID")

// SessionMiddleware resolves the session token into a session id on the
// request context. A missing or invalid token is not an error here: reads
// without a session get the no-holdings response downstream, and uploads
// mint a fresh session.
func SessionMiddleware(sessions *security.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString != "" {
				sessionID, err := sessions.ValidateToken(tokenString)
				if err != nil {
					logger.L.Debug("Session token rejected", "path", r.URL.Path, "error", err)
				} else {
					r = r.WithContext(context.WithValue(r.Context(), sessionIDKey, sessionID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get("X-Session-Token")
}

// GetSessionIDFromContext returns the validated session id, if any.
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	return sessionID, ok && sessionID != ""
}
