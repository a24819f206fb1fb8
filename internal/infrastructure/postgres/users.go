package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-blog-auth/internal/domain"
)

// UserRepo provides typed PostgreSQL operations for the users table.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a new user and returns its generated id. A duplicate email
// maps to domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (int, error) {
	var id int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, email, passwordHash).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (r *UserRepo) Get(ctx context.Context, userID int) (*domain.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, name, email, hashed_password, is_email_verified, created_at
		FROM users
		WHERE id = $1
	`, userID))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT id, name, email, hashed_password, is_email_verified, created_at
		FROM users
		WHERE email = $1
	`, email))
}

// MarkEmailVerified flips the verification flag after a successful token
// redemption.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, userID int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_email_verified = TRUE WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	return nil
}

func (r *UserRepo) scanOne(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.PasswordHash, &u.IsEmailVerified, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
