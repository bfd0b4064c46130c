package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"dcbgate/internal/platform/middleware"
)

// TokenValidator validates management API bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

type contextKeyAdminID struct{}

// GetAdminID retrieves the authenticated admin ID from the context.
func GetAdminID(ctx context.Context) string {
	if adminID, ok := ctx.Value(contextKeyAdminID{}).(string); ok {
		return adminID
	}
	return ""
}

// WithActor injects an admin identity and device into the context.
// Useful for handler tests that don't run the middleware chain.
func WithActor(ctx context.Context, adminID, device string) context.Context {
	ctx = context.WithValue(ctx, contextKeyAdminID{}, adminID)
	return middleware.WithDevice(ctx, device)
}

// RequireAuth gates the management API with a Bearer JWT. On success the
// admin identity and a normalized device description are stored in the
// context for the audit trail.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", middleware.GetRequestID(ctx))
				unauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", middleware.GetRequestID(ctx))
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeyAdminID{}, claims.AdminID)
			ctx = middleware.WithDevice(ctx, describeDevice(r.Header.Get("User-Agent")))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// describeDevice reduces a raw User-Agent to "browser/version on os" for
// audit records, so the trail stays readable without storing the full header.
func describeDevice(rawUA string) string {
	if rawUA == "" {
		return "unknown"
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}
	desc := name
	if version != "" {
		desc += "/" + version
	}
	if os := ua.OS(); os != "" {
		desc += " on " + os
	}
	return desc
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
