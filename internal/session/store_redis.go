package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"identikit/pkg/platform/sentinel"
)

const (
	defaultSessionKey = "identikit:session"

	fieldUserID       = "userId"
	fieldAccessToken  = "accessToken"
	fieldRefreshToken = "refreshToken"
	fieldExpiresAt    = "expiresAt"
)

// RedisTokenStore persists the quadruple as a Redis hash. A single HSET
// replaces all four fields in one command, which gives the atomic-save
// guarantee without transactions.
type RedisTokenStore struct {
	client *redis.Client
	key    string
}

// RedisTokenStoreOption configures a RedisTokenStore.
type RedisTokenStoreOption func(*RedisTokenStore)

// WithSessionKey namespaces the hash key, for hosts running multiple
// client instances against one Redis.
func WithSessionKey(key string) RedisTokenStoreOption {
	return func(s *RedisTokenStore) {
		if key != "" {
			s.key = key
		}
	}
}

// NewRedisTokenStore constructs a Redis-backed token store.
func NewRedisTokenStore(client *redis.Client, opts ...RedisTokenStoreOption) *RedisTokenStore {
	store := &RedisTokenStore{client: client, key: defaultSessionKey}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *RedisTokenStore) Load(ctx context.Context) (*Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load session hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("session quadruple: %w", sentinel.ErrNotFound)
	}

	millis, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt expiresAt %q: %w", fields[fieldExpiresAt], sentinel.ErrInvalidState)
	}

	sess := &Session{
		UserID:       fields[fieldUserID],
		AccessToken:  fields[fieldAccessToken],
		RefreshToken: fields[fieldRefreshToken],
		ExpiresAt:    time.UnixMilli(millis),
	}
	if !sess.Complete() {
		return nil, fmt.Errorf("partial session quadruple: %w", sentinel.ErrNotFound)
	}
	return sess, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, sess *Session) error {
	if !sess.Complete() {
		return fmt.Errorf("refusing to save partial quadruple: %w", sentinel.ErrInvalidState)
	}
	err := s.client.HSet(ctx, s.key,
		fieldUserID, sess.UserID,
		fieldAccessToken, sess.AccessToken,
		fieldRefreshToken, sess.RefreshToken,
		fieldExpiresAt, strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("save session hash: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear session hash: %w", err)
	}
	return nil
}
