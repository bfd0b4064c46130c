package middleware

import "context"

type contextKeyDevice struct{}

// GetDevice retrieves the normalized actor device description from the
// context. Set by the management API auth middleware.
func GetDevice(ctx context.Context) string {
	if device, ok := ctx.Value(contextKeyDevice{}).(string); ok {
		return device
	}
	return ""
}

// WithDevice injects a device description into a context.
// Useful for service unit tests that don't run the full middleware chain.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, contextKeyDevice{}, device)
}
