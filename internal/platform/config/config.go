package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr string

	// SLA protocol credentials. PasswordHash is a bcrypt hash; the plaintext
	// is never configured.
	SLAUsername     string
	SLAPasswordHash string
	AllowedCIDRs    []string

	// Admin management API.
	AdminJWTSigningKey string

	// Outbound operator connectivity.
	OperatorBaseURL   string
	OperatorAPIKey    string
	OperatorAPISecret string

	// Backing stores. Empty means the in-memory fallback.
	PostgresURL string
	RedisURL    string

	// Kafka audit sink. Empty brokers disable the sink.
	KafkaBrokers    []string
	KafkaAuditTopic string
}

// RedisConfig tunes the go-redis client pool.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("DCBGATE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("ADMIN_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	baseURL := os.Getenv("OPERATOR_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.sla-alacrity.com"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "dcbgate.audit"
	}

	return Server{
		Addr:               addr,
		SLAUsername:        os.Getenv("SLA_USERNAME"),
		SLAPasswordHash:    os.Getenv("SLA_PASSWORD_HASH"),
		AllowedCIDRs:       splitList(os.Getenv("SLA_ALLOWED_CIDRS")),
		AdminJWTSigningKey: jwtSigningKey,
		OperatorBaseURL:    baseURL,
		OperatorAPIKey:     os.Getenv("OPERATOR_API_KEY"),
		OperatorAPISecret:  os.Getenv("OPERATOR_API_SECRET"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaAuditTopic:    topic,
	}
}

// Redis builds the redis pool config with defaults suited to the sandbox
// store's small-value workload.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
