package domain

import "time"

type User struct {
	UserID          int       `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created"`
}

// Identity is the slice of a user that lives inside a session. It is what
// "who is the caller" resolves to for the rest of the system.
type Identity struct {
	UserID          int    `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// IdentityOf builds the session-resident identity record for a user.
func IdentityOf(u *User) Identity {
	return Identity{
		UserID:          u.UserID,
		Name:            u.Name,
		Email:           u.Email,
		IsEmailVerified: u.IsEmailVerified,
	}
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
