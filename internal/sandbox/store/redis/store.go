// Package redis stores sandbox provisioning records with native TTL, so an
// expired record disappears without any sweep.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dcbgate/internal/sandbox"
	"dcbgate/pkg/sentinel"
)

const keyPrefix = "sandbox:provision:"

type Store struct {
	client *redis.Client
	clock  func() time.Time
}

type Option func(*Store)

func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(ctx context.Context, p sandbox.Provision) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal provision: %w", err)
	}
	ttl := p.ExpiresAt.Sub(s.clock())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	if err := s.client.Set(ctx, keyPrefix+p.MSISDN, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save provision: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, msisdn string) (sandbox.Provision, error) {
	payload, err := s.client.Get(ctx, keyPrefix+msisdn).Bytes()
	if errors.Is(err, redis.Nil) {
		return sandbox.Provision{}, sentinel.ErrNotFound
	}
	if err != nil {
		return sandbox.Provision{}, fmt.Errorf("find provision: %w", err)
	}
	var p sandbox.Provision
	if err := json.Unmarshal(payload, &p); err != nil {
		return sandbox.Provision{}, fmt.Errorf("unmarshal provision: %w", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, msisdn string) error {
	n, err := s.client.Del(ctx, keyPrefix+msisdn).Result()
	if err != nil {
		return fmt.Errorf("delete provision: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
