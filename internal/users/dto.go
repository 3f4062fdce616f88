package users

import (
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials and pending codes.
type UserDTO struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Role          enums.Role `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Summary is the minimal projection embedded in tokens responses.
type Summary struct {
	ID    int64      `json:"id"`
	Email string     `json:"email"`
	Role  enums.Role `json:"role"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email                  string
	PasswordHash           string
	Role                   enums.Role
	EmailVerified          bool
	VerificationCode       *string
	VerificationCodeExpiry *time.Time
}

// WithMovieCount is a user row joined with the number of movies they own.
type WithMovieCount struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Role          enums.Role `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	MovieCount    int64      `json:"movie_count"`
}

// RoleCount is one row of the users-by-role breakdown.
type RoleCount struct {
	Role  enums.Role `json:"role"`
	Count int64      `json:"count"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func SummaryFromModel(u *models.User) Summary {
	return Summary{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.RoleUser
	}
	return &models.User{
		Email:                  c.Email,
		PasswordHash:           c.PasswordHash,
		Role:                   role,
		EmailVerified:          c.EmailVerified,
		VerificationCode:       c.VerificationCode,
		VerificationCodeExpiry: c.VerificationCodeExpiry,
	}
}
