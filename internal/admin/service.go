package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/auth"
	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/rbac"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
	"gorm.io/gorm"
)

const (
	topGenresLimit   = 10
	recentUsersLimit = 10
)

// Service exposes user administration and platform analytics.
type Service interface {
	ListUsers(ctx context.Context, actor Actor) (*UserListResponse, error)
	Analytics(ctx context.Context, actor Actor) (*AnalyticsResponse, error)
	ChangeRole(ctx context.Context, actor Actor, userID int64, role string) (*ChangeRoleResponse, error)
	DeleteUser(ctx context.Context, actor Actor, userID int64) (*DeleteUserResponse, error)
	CreateAdmin(ctx context.Context, actor Actor, req auth.CreateAdminRequest) (*CreateAdminResponse, error)
}

// ServiceParams groups dependencies for the admin service.
type ServiceParams struct {
	DB             *db.Client
	Logger         *logger.Logger
	PasswordConfig config.PasswordConfig
	Now            func() time.Time
}

type service struct {
	db          *db.Client
	users       *users.Repository
	movies      *movies.Repository
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
	now         func() time.Time
}

// NewService builds the admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:          params.DB,
		users:       users.NewRepository(params.DB.DB()),
		movies:      movies.NewRepository(params.DB.DB()),
		logg:        params.Logger,
		passwordCfg: params.PasswordConfig,
		now:         func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) ListUsers(ctx context.Context, actor Actor) (*UserListResponse, error) {
	rows, err := s.users.ListWithMovieCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	if rows == nil {
		rows = []users.WithMovieCount{}
	}
	return &UserListResponse{
		Users:       rows,
		Total:       len(rows),
		RequestedBy: actor.Email,
		Timestamp:   s.now(),
	}, nil
}

func (s *service) Analytics(ctx context.Context, actor Actor) (*AnalyticsResponse, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	verified, err := s.users.CountVerified(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count verified users")
	}
	totalMovies, err := s.movies.Count(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count movies")
	}
	byRole, err := s.users.CountsByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users by role")
	}
	genres, err := s.movies.TopGenres(ctx, topGenresLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank genres")
	}
	recent, err := s.users.ListRecent(ctx, recentUsersLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent users")
	}

	recentUsers := make([]RecentUser, 0, len(recent))
	for _, u := range recent {
		recentUsers = append(recentUsers, RecentUser{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt})
	}
	if byRole == nil {
		byRole = []users.RoleCount{}
	}
	if genres == nil {
		genres = []movies.GenreCount{}
	}

	return &AnalyticsResponse{
		Summary: AnalyticsSummary{
			TotalUsers:      totalUsers,
			VerifiedUsers:   verified,
			UnverifiedUsers: totalUsers - verified,
			TotalMovies:     totalMovies,
		},
		UsersByRole: byRole,
		TopGenres:   genres,
		RecentUsers: recentUsers,
		RequestedBy: actor.Email,
		Timestamp:   s.now(),
	}, nil
}

func (s *service) ChangeRole(ctx context.Context, actor Actor, userID int64, rawRole string) (*ChangeRoleResponse, error) {
	target, err := s.findUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you cannot change your own role")
	}
	role, err := enums.ParseRole(rawRole)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid role, use USER or ADMIN")
	}

	if err := s.users.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	updated, err := s.findUser(ctx, s.users, target.ID)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"target_user_id": updated.ID,
		"previous_role":  target.Role.String(),
		"new_role":       updated.Role.String(),
	})
	s.logg.Info(logCtx, "admin.role_changed")

	return &ChangeRoleResponse{
		Message: "role updated",
		User: RoleChangedUser{
			ID:        updated.ID,
			Email:     updated.Email,
			Role:      updated.Role,
			UpdatedAt: updated.UpdatedAt,
		},
		ChangedBy: actor.Email,
		Timestamp: s.now(),
	}, nil
}

// DeleteUser removes the account and every movie it owns in one transaction.
func (s *service) DeleteUser(ctx context.Context, actor Actor, userID int64) (*DeleteUserResponse, error) {
	var (
		target        *models.User
		deletedMovies int64
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)
		user, err := s.findUser(ctx, userRepo, userID)
		if err != nil {
			return err
		}
		if user.ID == actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot delete your own account")
		}
		n, err := movies.NewRepository(tx).DeleteByUser(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user movies")
		}
		if _, err := userRepo.Delete(ctx, user.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
		}
		target, deletedMovies = user, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"target_user_id": target.ID,
		"deleted_movies": deletedMovies,
	})
	s.logg.Info(logCtx, "admin.user_deleted")

	return &DeleteUserResponse{
		Message:       fmt.Sprintf("user %s deleted", target.Email),
		DeletedMovies: deletedMovies,
		DeletedBy:     actor.Email,
		Timestamp:     s.now(),
	}, nil
}

func (s *service) CreateAdmin(ctx context.Context, actor Actor, req auth.CreateAdminRequest) (*CreateAdminResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	created, err := auth.CreateVerifiedAdmin(ctx, s.users, email, hash)
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "new_admin_id", created.ID), "admin.admin_created")

	return &CreateAdminResponse{
		Message:     "administrator created",
		Admin:       users.FromModel(created),
		CreatedBy:   actor.Email,
		Permissions: rbac.PermissionsFor(enums.RoleAdmin),
		Timestamp:   s.now(),
	}, nil
}

func (s *service) findUser(ctx context.Context, repo *users.Repository, id int64) (*models.User, error) {
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
