package models

import (
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/enums"
)

// User represents the canonical identity entity. Each one-time code is stored
// alongside its expiry; both columns are NULL when no code is pending.
type User struct {
	ID                     int64      `gorm:"primaryKey;autoIncrement"`
	Email                  string     `gorm:"type:text;not null;uniqueIndex:users_email_key"`
	PasswordHash           string     `gorm:"column:password_hash;not null"`
	Role                   enums.Role `gorm:"type:text;not null;default:USER;index"`
	EmailVerified          bool       `gorm:"column:email_verified;not null;default:false"`
	VerificationCode       *string    `gorm:"column:verification_code"`
	VerificationCodeExpiry *time.Time `gorm:"column:verification_code_expiry"`
	LoginCode              *string    `gorm:"column:login_code"`
	LoginCodeExpiry        *time.Time `gorm:"column:login_code_expiry"`
	CreatedAt              time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
