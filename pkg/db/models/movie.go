package models

import "time"

// Movie is a watchlist entry owned by exactly one user.
type Movie struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	Title     string     `gorm:"type:text;not null"`
	Year      *int       `gorm:"column:year"`
	Genre     *string    `gorm:"column:genre"`
	Director  *string    `gorm:"column:director"`
	Rating    *float64   `gorm:"column:rating"`
	Watched   bool       `gorm:"column:watched;not null;default:false"`
	WatchedAt *time.Time `gorm:"column:watched_at"`
	Notes     *string    `gorm:"column:notes"`
	UserID    int64      `gorm:"column:user_id;not null;index"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
