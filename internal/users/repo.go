package users

import (
	"context"
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email exactly.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SetLoginCode stores a pending login code, replacing any previous one.
func (r *Repository) SetLoginCode(ctx context.Context, id int64, code string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"login_code":        code,
			"login_code_expiry": expiresAt,
		}).Error
}

// ConsumeVerificationCode marks the email verified and clears the code pair.
// It reports false when the stored code no longer equals code, which happens
// when a concurrent request consumed it first.
func (r *Repository) ConsumeVerificationCode(ctx context.Context, id int64, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND verification_code = ?", id, code).
		Updates(map[string]any{
			"email_verified":           true,
			"verification_code":        nil,
			"verification_code_expiry": nil,
		})
	return res.RowsAffected == 1, res.Error
}

// ConsumeLoginCode clears the login code pair if it still equals code.
func (r *Repository) ConsumeLoginCode(ctx context.Context, id int64, code string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND login_code = ?", id, code).
		Updates(map[string]any{
			"login_code":        nil,
			"login_code_expiry": nil,
		})
	return res.RowsAffected == 1, res.Error
}

// UpdateRole changes the user's role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role enums.Role) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// Delete removes the user row. Callers delete owned movies in the same
// transaction.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// Count returns the number of users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

// CountVerified returns the number of users with a verified email.
func (r *Repository) CountVerified(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email_verified = ?", true).Count(&n).Error
	return n, err
}

// CountByRole returns the number of users holding role.
func (r *Repository) CountByRole(ctx context.Context, role enums.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

// CountsByRole groups users by role.
func (r *Repository) CountsByRole(ctx context.Context) ([]RoleCount, error) {
	var rows []RoleCount
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Order("role ASC").
		Scan(&rows).Error
	return rows, err
}

// ListWithMovieCounts returns every user newest first with their movie totals.
func (r *Repository) ListWithMovieCounts(ctx context.Context) ([]WithMovieCount, error) {
	var rows []WithMovieCount
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.email, users.role, users.email_verified, users.created_at, COUNT(movies.id) AS movie_count").
		Joins("LEFT JOIN movies ON movies.user_id = users.id").
		Group("users.id, users.email, users.role, users.email_verified, users.created_at").
		Order("users.created_at DESC, users.id DESC").
		Scan(&rows).Error
	return rows, err
}

// ListRecent returns the most recently created users.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.User, error) {
	var rows []models.User
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// OwnerOf resolves the owning user of a user resource, which is the user
// itself. It returns gorm.ErrRecordNotFound when the user does not exist.
func (r *Repository) OwnerOf(ctx context.Context, id int64) (int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}
