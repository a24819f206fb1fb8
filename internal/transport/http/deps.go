package http

import (
	"context"
	"time"

	"github.com/go-blog-auth/internal/domain"
	"github.com/go-blog-auth/internal/transport/http/middleware"
)

// UserRepository is the minimal interface the router requires from the user store.
type UserRepository interface {
	Create(ctx context.Context, name, email, passwordHash string) (int, error)
	Get(ctx context.Context, userID int) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, userID int) error
}

// VerificationRepository is the minimal interface the router requires from the
// verification token store.
type VerificationRepository interface {
	Save(ctx context.Context, token string, userID int, ttl time.Duration) error
	Redeem(ctx context.Context, token string) (userID int, ok bool, err error)
}

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	SessionRepo      middleware.SessionStore
	UserRepo         UserRepository
	VerificationRepo VerificationRepository
	Mailer           Mailer
}
