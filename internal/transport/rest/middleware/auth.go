package middleware

import (
	"context"
	"net/http"
	"strings"

	"lessonplayer/internal/model"
	"lessonplayer/internal/service"
)

type contextKey string

const (
	HostIDKey  contextKey = "hostId"
	LearnerKey contextKey = "learner"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireHost validates host JWT from Authorization header
func (m *AuthMiddleware) RequireHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeUnauthorized(w, "missing authorization header")
			return
		}

		claims, err := m.authSvc.ValidateHostToken(token)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), HostIDKey, claims.HostID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLearner validates learner JWT from Authorization header or query param
func (m *AuthMiddleware) RequireLearner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			// sendBeacon on page unload cannot set headers
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeUnauthorized(w, "missing authorization")
			return
		}

		claims, err := m.authSvc.ValidateLearnerToken(token)
		if err != nil {
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), LearnerKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetHostID extracts host ID from context
func GetHostID(ctx context.Context) string {
	if v, ok := ctx.Value(HostIDKey).(string); ok {
		return v
	}
	return ""
}

// GetLearner extracts learner claims from context
func GetLearner(ctx context.Context) *model.LearnerClaims {
	if v, ok := ctx.Value(LearnerKey).(*model.LearnerClaims); ok {
		return v
	}
	return nil
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
