package admin

import (
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
)

// Actor is the administrator performing a request.
type Actor struct {
	ID    int64
	Email string
}

type UserListResponse struct {
	Users       []users.WithMovieCount `json:"users"`
	Total       int                    `json:"total"`
	RequestedBy string                 `json:"requested_by"`
	Timestamp   time.Time              `json:"timestamp"`
}

type AnalyticsSummary struct {
	TotalUsers      int64 `json:"total_users"`
	VerifiedUsers   int64 `json:"verified_users"`
	UnverifiedUsers int64 `json:"unverified_users"`
	TotalMovies     int64 `json:"total_movies"`
}

// RecentUser is the projection used in the analytics recent users list.
type RecentUser struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}

type AnalyticsResponse struct {
	Summary     AnalyticsSummary    `json:"summary"`
	UsersByRole []users.RoleCount   `json:"users_by_role"`
	TopGenres   []movies.GenreCount `json:"top_genres"`
	RecentUsers []RecentUser        `json:"recent_users"`
	RequestedBy string              `json:"requested_by"`
	Timestamp   time.Time           `json:"timestamp"`
}

// ChangeRoleRequest is the body of PATCH /admin/users/{id}/role. The value is
// checked against the known roles by the service so that an unknown role is a
// bad request rather than a validation failure.
type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type RoleChangedUser struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	Role      enums.Role `json:"role"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ChangeRoleResponse struct {
	Message   string          `json:"message"`
	User      RoleChangedUser `json:"user"`
	ChangedBy string          `json:"changed_by"`
	Timestamp time.Time       `json:"timestamp"`
}

type DeleteUserResponse struct {
	Message       string    `json:"message"`
	DeletedMovies int64     `json:"deleted_movies"`
	DeletedBy     string    `json:"deleted_by"`
	Timestamp     time.Time `json:"timestamp"`
}

type CreateAdminResponse struct {
	Message     string             `json:"message"`
	Admin       *users.UserDTO     `json:"admin"`
	CreatedBy   string             `json:"created_by"`
	Permissions []enums.Permission `json:"permissions"`
	Timestamp   time.Time          `json:"timestamp"`
}
