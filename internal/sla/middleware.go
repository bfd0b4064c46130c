package sla

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const actorContextKey contextKey = "sla.actor"

// actorFromContext returns the authenticated merchant username, set by the
// Auth middleware. Empty outside an authenticated request.
func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey).(string)
	return actor
}

// Auth gates every business endpoint with HTTP Basic credentials. The
// password is compared against a bcrypt hash so the plaintext never lives in
// process memory longer than the comparison. Per the protocol, rejections are
// HTTP 200 with an Authorization-category envelope — never a 401.
type Auth struct {
	username     string
	passwordHash string
	logger       *slog.Logger
}

func NewAuth(username, passwordHash string, logger *slog.Logger) *Auth {
	return &Auth{username: username, passwordHash: passwordHash, logger: logger}
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			a.logger.WarnContext(r.Context(), "missing basic auth", "path", r.URL.Path)
			writeError(w, a.logger, envMissingCredentials)
			return
		}
		if user != a.username ||
			bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(pass)) != nil {
			a.logger.WarnContext(r.Context(), "invalid credentials", "path", r.URL.Path, "user", user)
			writeError(w, a.logger, envInvalidCredentials)
			return
		}
		ctx := context.WithValue(r.Context(), actorContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPAllowlist rejects callers outside the configured CIDR set with 1003.
// An empty set allows everything, for development and sandbox use.
type IPAllowlist struct {
	nets   []*net.IPNet
	logger *slog.Logger
}

func NewIPAllowlist(cidrs []string, logger *slog.Logger) (*IPAllowlist, error) {
	al := &IPAllowlist{logger: logger}
	for _, cidr := range cidrs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		al.nets = append(al.nets, ipnet)
	}
	return al, nil
}

func (al *IPAllowlist) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(al.nets) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !al.allowed(ip) {
			al.logger.WarnContext(r.Context(), "caller not whitelisted", "addr", r.RemoteAddr)
			writeError(w, al.logger, envIPNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (al *IPAllowlist) allowed(ip net.IP) bool {
	for _, n := range al.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// queryOnly rejects requests that carry parameters in the body. The protocol
// mandates query-string-only parameters; a body is a caller bug and must be
// rejected loudly rather than silently read.
func queryOnly(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				probe := make([]byte, 1)
				if n, _ := r.Body.Read(probe); n > 0 {
					_, _ = io.Copy(io.Discard, r.Body)
					logger.WarnContext(r.Context(), "request body rejected", "path", r.URL.Path)
					writeError(w, logger, Envelope{
						Category: CategoryRequest,
						Code:     "2001",
						Message:  "parameters must be sent in the query string, not the body",
					})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
