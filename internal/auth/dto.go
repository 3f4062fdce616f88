package auth

import (
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
)

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// VerifyCodeRequest is shared by email verification and login verification.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAdminRequest is the payload for both admin creation paths.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type VerifyEmailResponse struct {
	Message  string `json:"message"`
	Verified bool   `json:"verified"`
}

type LoginResponse struct {
	Message       string `json:"message"`
	LoginCodeSent bool   `json:"login_code_sent"`
}

// VerifyLoginResponse carries the access token issued after the second factor.
type VerifyLoginResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        users.Summary `json:"user"`
}

type CreateAdminResponse struct {
	Message     string             `json:"message"`
	User        *users.UserDTO     `json:"user"`
	Permissions []enums.Permission `json:"permissions,omitempty"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User            *users.UserDTO     `json:"user"`
	Permissions     []enums.Permission `json:"permissions"`
	RoleDescription string             `json:"role_description"`
	Timestamp       time.Time          `json:"timestamp"`
}
