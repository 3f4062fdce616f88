package admin_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/admin"
	"github.com/angelmondragon/watchlist-backend/internal/auth"
	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/dbtest"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	svc    admin.Service
	users  *users.Repository
	movies *movies.Repository
	logs   *bytes.Buffer
	admin  admin.Actor
	alice  int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	client := dbtest.Open(t)
	logs := &bytes.Buffer{}

	svc, err := admin.NewService(admin.ServiceParams{
		DB:             client,
		Logger:         logger.New(logger.Options{ServiceName: "test", Output: logs}),
		PasswordConfig: config.PasswordConfig{BcryptCost: bcrypt.MinCost},
		Now:            func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	userRepo := users.NewRepository(client.DB())
	movieRepo := movies.NewRepository(client.DB())

	root, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "root@example.com", PasswordHash: "h", Role: enums.RoleAdmin, EmailVerified: true})
	require.NoError(t, err)
	alice, err := userRepo.Create(ctx, users.CreateUserDTO{Email: "alice@example.com", PasswordHash: "h", EmailVerified: true})
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, users.CreateUserDTO{Email: "pending@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	return fixture{
		svc:    svc,
		users:  userRepo,
		movies: movieRepo,
		logs:   logs,
		admin:  admin.Actor{ID: root.ID, Email: root.Email},
		alice:  alice.ID,
	}
}

func (f fixture) addMovie(t *testing.T, userID int64, title, genre string) {
	t.Helper()
	_, err := f.movies.Create(context.Background(), &models.Movie{Title: title, Genre: &genre, UserID: userID})
	require.NoError(t, err)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, code), "expected %s, got %v", code, err)
}

func TestListUsersIncludesMovieCounts(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, f.alice, "Heat", "Crime")
	f.addMovie(t, f.alice, "Ran", "Drama")

	res, err := f.svc.ListUsers(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, "root@example.com", res.RequestedBy)
	require.Len(t, res.Users, 3)
	assert.Equal(t, "pending@example.com", res.Users[0].Email, "newest first")

	counts := map[string]int64{}
	for _, u := range res.Users {
		counts[u.Email] = u.MovieCount
	}
	assert.Equal(t, map[string]int64{"root@example.com": 0, "alice@example.com": 2, "pending@example.com": 0}, counts)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	f.addMovie(t, f.alice, "Heat", "Crime")
	f.addMovie(t, f.alice, "Thief", "Crime")
	f.addMovie(t, f.admin.ID, "Ran", "Drama")
	f.addMovie(t, f.admin.ID, "Untitled", "")

	res, err := f.svc.Analytics(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Equal(t, admin.AnalyticsSummary{TotalUsers: 3, VerifiedUsers: 2, UnverifiedUsers: 1, TotalMovies: 4}, res.Summary)
	assert.Equal(t, []users.RoleCount{{Role: enums.RoleAdmin, Count: 1}, {Role: enums.RoleUser, Count: 2}}, res.UsersByRole)
	assert.Equal(t, []movies.GenreCount{{Genre: "Crime", Count: 2}, {Genre: "Drama", Count: 1}}, res.TopGenres)
	require.Len(t, res.RecentUsers, 3)
	assert.Equal(t, "pending@example.com", res.RecentUsers[0].Email)
}

func TestChangeRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ChangeRole(ctx, f.admin, 999, "ADMIN")
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = f.svc.ChangeRole(ctx, f.admin, f.admin.ID, "USER")
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.ChangeRole(ctx, f.admin, f.alice, "SUPERUSER")
	requireCode(t, err, pkgerrors.CodeBadRequest)

	res, err := f.svc.ChangeRole(ctx, f.admin, f.alice, "admin")
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, res.User.Role)
	assert.Equal(t, "root@example.com", res.ChangedBy)

	stored, err := f.users.FindByID(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, stored.Role)
	assert.Contains(t, f.logs.String(), "admin.role_changed")
}

func TestDeleteUserRemovesMovies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addMovie(t, f.alice, "Heat", "Crime")
	f.addMovie(t, f.alice, "Ran", "Drama")
	f.addMovie(t, f.admin.ID, "Alien", "Horror")

	_, err := f.svc.DeleteUser(ctx, f.admin, f.admin.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = f.svc.DeleteUser(ctx, f.admin, 999)
	requireCode(t, err, pkgerrors.CodeNotFound)

	res, err := f.svc.DeleteUser(ctx, f.admin, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.DeletedMovies)
	assert.Contains(t, res.Message, "alice@example.com")

	_, err = f.users.FindByID(ctx, f.alice)
	assert.True(t, db.IsNotFound(err))
	total, err := f.movies.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = f.svc.DeleteUser(ctx, f.admin, f.alice)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateAdminByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateAdmin(ctx, f.admin, auth.CreateAdminRequest{Email: "second@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, enums.RoleAdmin, res.Admin.Role)
	assert.True(t, res.Admin.EmailVerified)
	assert.Equal(t, "root@example.com", res.CreatedBy)
	assert.Contains(t, res.Permissions, enums.PermissionDeleteUsers)

	stored, err := f.users.FindByEmail(ctx, "second@example.com")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("password123", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.CreateAdmin(ctx, f.admin, auth.CreateAdminRequest{Email: "alice@example.com", Password: "password123"})
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := admin.NewService(admin.ServiceParams{})
	require.Error(t, err)
}
