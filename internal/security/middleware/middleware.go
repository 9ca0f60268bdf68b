package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/inspectrack/inspectrack/internal/security/audit"
	"github.com/inspectrack/inspectrack/internal/security/auth"
	"github.com/inspectrack/inspectrack/internal/security/ratelimit"
)

type OrgContextKey struct{}
type ClaimsContextKey struct{}

// publicPath lists endpoints reachable without a token.
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics", "/api/login":
		return true
	}
	return false
}

func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Websocket clients cannot set headers; accept ?token=.
				if t := r.URL.Query().Get("token"); t != "" {
					authHeader = "Bearer " + t
				}
			}
			if authHeader == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, OrgContextKey{}, claims.OrgID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			orgID := ""
			if t := r.Context().Value(OrgContextKey{}); t != nil {
				orgID = t.(string)
			}

			if !limiter.Allow(orgID) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			orgID := ""
			userID := ""
			if t := r.Context().Value(OrgContextKey{}); t != nil {
				orgID = t.(string)
			}
			if c := r.Context().Value(ClaimsContextKey{}); c != nil {
				claims := c.(*auth.Claims)
				userID = claims.UserID
			}

			if r.Method == http.MethodPost && r.URL.Path == "/api/inspections" {
				auditLog.LogAction(r.Context(), orgID, userID, "create", "inspection", "", "initiated", "")
			}
			if r.Method == http.MethodPost && r.URL.Path == "/api/scheduler/run" {
				auditLog.LogSchedulerRun(r.Context(), orgID, userID)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetOrgFromContext(ctx context.Context) string {
	if t := ctx.Value(OrgContextKey{}); t != nil {
		return t.(string)
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}
