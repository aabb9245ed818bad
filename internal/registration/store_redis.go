package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"identikit/pkg/platform/sentinel"
)

const (
	draftKeyPrefix  = "identikit:draft:"
	defaultDraftTTL = 24 * time.Hour
)

// RedisDraftStore persists drafts as JSON blobs under a TTL, so abandoned
// registrations age out instead of accumulating.
type RedisDraftStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisDraftStoreOption configures a RedisDraftStore.
type RedisDraftStoreOption func(*RedisDraftStore)

// WithDraftTTL overrides how long an untouched draft survives. Every save
// resets the clock.
func WithDraftTTL(ttl time.Duration) RedisDraftStoreOption {
	return func(s *RedisDraftStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithDraftKeyPrefix namespaces draft keys.
func WithDraftKeyPrefix(prefix string) RedisDraftStoreOption {
	return func(s *RedisDraftStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisDraftStore constructs a Redis-backed draft store.
func NewRedisDraftStore(client *redis.Client, opts ...RedisDraftStoreOption) *RedisDraftStore {
	store := &RedisDraftStore{client: client, prefix: draftKeyPrefix, ttl: defaultDraftTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *RedisDraftStore) Load(ctx context.Context, flowKey string) (*Draft, error) {
	raw, err := s.client.Get(ctx, s.prefix+flowKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("draft %q: %w", flowKey, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("corrupt draft %q: %w", flowKey, sentinel.ErrInvalidState)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, flowKey string, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+flowKey, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Clear(ctx context.Context, flowKey string) error {
	if err := s.client.Del(ctx, s.prefix+flowKey).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
