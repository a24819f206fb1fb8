package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-blog-auth/internal/domain"
	pkgtoken "github.com/go-blog-auth/internal/pkg/token"
)

type Service interface {
	// Register creates the account, then issues a verification token and
	// emails the confirmation link.
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	// SignIn verifies the credentials and returns the user; the caller is
	// responsible for establishing the session.
	SignIn(ctx context.Context, req domain.SignInRequest) (*domain.User, error)
	// RequestEmailConfirmation issues a fresh token for an existing account
	// and emails the confirmation link.
	RequestEmailConfirmation(ctx context.Context, userID int) error
	// ConfirmEmail redeems the token and marks the owning account verified.
	// An unknown, expired, or already-consumed token maps to
	// domain.ErrInvalidOrExpiredToken.
	ConfirmEmail(ctx context.Context, token string) (*domain.User, error)

	// IssueVerificationToken and RedeemVerificationToken expose the raw token
	// lifecycle to the rest of the system.
	IssueVerificationToken(ctx context.Context, userID int) (string, error)
	RedeemVerificationToken(ctx context.Context, token string) (int, error)
}

type userStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (int, error)
	Get(ctx context.Context, userID int) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, userID int) error
}

type verificationStore interface {
	Save(ctx context.Context, token string, userID int, ttl time.Duration) error
	Redeem(ctx context.Context, token string) (userID int, ok bool, err error)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	userRepo         userStore
	verificationRepo verificationStore
	mailer           mailer
	verificationTTL  time.Duration
	publicBaseURL    string
}

func NewService(userRepo userStore, verificationRepo verificationStore, m mailer, verificationTTL time.Duration, publicBaseURL string) Service {
	return &service{
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		mailer:           m,
		verificationTTL:  verificationTTL,
		publicBaseURL:    publicBaseURL,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.userRepo.Create(ctx, req.Name, req.Email, string(hash))
	if err != nil {
		return nil, err
	}

	u, err := s.userRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Verification email is best effort; a mail outage must not undo a
	// completed registration. The user can request a fresh token later.
	if err := s.issueAndSend(ctx, u); err != nil {
		slog.Warn("verification email not sent", "user_id", u.UserID, "err", err)
	}
	return u, nil
}

func (s *service) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("email not registered: %w", domain.ErrBadRequest)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("password mismatch: %w", domain.ErrBadRequest)
	}
	return u, nil
}

func (s *service) RequestEmailConfirmation(ctx context.Context, userID int) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return fmt.Errorf("email already verified: %w", domain.ErrConflict)
	}
	return s.issueAndSend(ctx, u)
}

func (s *service) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.RedeemVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.MarkEmailVerified(ctx, userID); err != nil {
		return nil, err
	}
	return s.userRepo.Get(ctx, userID)
}

func (s *service) IssueVerificationToken(ctx context.Context, userID int) (string, error) {
	t, err := pkgtoken.New()
	if err != nil {
		return "", err
	}
	if err := s.verificationRepo.Save(ctx, t, userID, s.verificationTTL); err != nil {
		return "", err
	}
	return t, nil
}

func (s *service) RedeemVerificationToken(ctx context.Context, token string) (int, error) {
	userID, ok, err := s.verificationRepo.Redeem(ctx, token)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, domain.ErrInvalidOrExpiredToken
	}
	return userID, nil
}

func (s *service) issueAndSend(ctx context.Context, u *domain.User) error {
	t, err := s.IssueVerificationToken(ctx, u.UserID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/v1/email-confirmations/confirm?token=%s", s.publicBaseURL, t)
	body := fmt.Sprintf("Hello %s,\n\nConfirm your email address by opening the link below within %d minutes:\n\n%s\n",
		u.Name, int(s.verificationTTL.Minutes()), link)
	return s.mailer.SendEmail(u.Email, "Confirm your email", body)
}
