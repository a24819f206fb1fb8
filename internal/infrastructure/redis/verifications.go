package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/go-blog-auth/internal/domain"
)

const verificationKeyPrefix = "email_verify:"

// VerificationRepo stores one-time email-verification tokens, each mapping an
// opaque token to a user id under a caller-supplied TTL.
type VerificationRepo struct {
	client *goredis.Client
}

func NewVerificationRepo(client *goredis.Client) *VerificationRepo {
	return &VerificationRepo{client: client}
}

func verificationKey(token string) string {
	return verificationKeyPrefix + token
}

// Save stores token -> userID with the given expiry. Issuing a new token for
// the same user does not invalidate older unexpired ones.
func (r *VerificationRepo) Save(ctx context.Context, token string, userID int, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("verification: missing token: %w", domain.ErrBadRequest)
	}
	if err := r.client.Set(ctx, verificationKey(token), strconv.Itoa(userID), ttl).Err(); err != nil {
		return fmt.Errorf("%w: set verification: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Redeem atomically reads and deletes the token's mapping via GETDEL, so at
// most one of any number of concurrent callers observes the user id; the rest
// see the token as already consumed. A missing, expired, or unparseable entry
// reports ok=false with no error.
func (r *VerificationRepo) Redeem(ctx context.Context, token string) (userID int, ok bool, err error) {
	raw, err := r.client.GetDel(ctx, verificationKey(token)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: getdel verification: %v", domain.ErrStoreUnavailable, err)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, nil
	}
	return id, true, nil
}
