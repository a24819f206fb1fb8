package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/go-blog-auth/internal/domain"
)

const sessionKeyPrefix = "session:"

// SessionRepo stores session attribute maps in Redis under a fixed TTL with
// sliding expiration on read. Attribute maps are serialized as JSON.
type SessionRepo struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionRepo(client *goredis.Client, ttl time.Duration) *SessionRepo {
	return &SessionRepo{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Load fetches the attribute map for sessionID. A hit refreshes the key's TTL
// to the full window before decoding. A miss returns an empty map and no
// error. A payload that no longer decodes is treated as no session: the
// corrupt key is deleted and an empty map returned, so a schema drift degrades
// to logged-out instead of failing every request for that user.
func (r *SessionRepo) Load(ctx context.Context, sessionID string) (map[string]any, error) {
	key := sessionKey(sessionID)

	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStoreUnavailable, key, err)
	}

	if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: expire %s: %v", domain.ErrStoreUnavailable, key, err)
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil || attrs == nil {
		slog.Warn("deleting undecodable session payload", "session_id", sessionID, "err", err)
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return nil, fmt.Errorf("%w: del %s: %v", domain.ErrStoreUnavailable, key, delErr)
		}
		return map[string]any{}, nil
	}
	return attrs, nil
}

// Save encodes and writes the attribute map with the full TTL, overwriting
// any prior value. Empty maps are never persisted; an empty session is the
// same as no session.
func (r *SessionRepo) Save(ctx context.Context, sessionID string, attrs map[string]any) error {
	if sessionID == "" {
		return fmt.Errorf("session: missing session_id: %w", domain.ErrBadRequest)
	}
	if len(attrs) == 0 {
		return fmt.Errorf("session: refusing to persist empty attributes: %w", domain.ErrBadRequest)
	}

	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, sessionKey(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStoreUnavailable, sessionKey(sessionID), err)
	}
	return nil
}

// Delete removes the session key. Deleting a key that does not exist is not
// an error.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: del %s: %v", domain.ErrStoreUnavailable, sessionKey(sessionID), err)
	}
	return nil
}
