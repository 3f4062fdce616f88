package movies

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository exposes movie persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a movies repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// sortColumns maps accepted sort keys to columns. Camel case keys are kept for
// older clients.
var sortColumns = map[string]string{
	"title":      "title",
	"year":       "year",
	"rating":     "rating",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"watched_at": "watched_at",
	"watchedAt":  "watched_at",
}

// Create inserts a movie row.
func (r *Repository) Create(ctx context.Context, movie *models.Movie) (*models.Movie, error) {
	if err := r.db.WithContext(ctx).Create(movie).Error; err != nil {
		return nil, err
	}
	return movie, nil
}

// FindByID loads a movie by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).First(&movie, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &movie, nil
}

// Update applies the column updates and returns the fresh row.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]any) (*models.Movie, error) {
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.FindByID(ctx, id)
}

// Delete removes a movie and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Movie{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// DeleteByUser removes every movie owned by userID.
func (r *Repository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Movie{})
	return res.RowsAffected, res.Error
}

// List returns one page of the user's movies and the unpaginated total.
func (r *Repository) List(ctx context.Context, userID int64, q ListQuery) ([]models.Movie, int64, error) {
	base := applyFilters(r.db.WithContext(ctx).Model(&models.Movie{}).Where("user_id = ?", userID), q.Filters)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := sortColumns[q.Filters.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(q.Filters.SortOrder, "asc") {
		dir = "ASC"
	}

	p := q.Pagination.Normalize()
	var rows []models.Movie
	err := base.Session(&gorm.Session{}).
		Order(fmt.Sprintf("%s %s, id %s", col, dir, dir)).
		Offset(p.Offset()).
		Limit(p.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyFilters(tx *gorm.DB, f ListFilters) *gorm.DB {
	if s := strings.TrimSpace(f.Search); s != "" {
		tx = tx.Where(`LOWER(title) LIKE ? ESCAPE '\'`, containsPattern(s))
	}
	if s := strings.TrimSpace(f.Genre); s != "" {
		tx = tx.Where(`LOWER(genre) LIKE ? ESCAPE '\'`, containsPattern(s))
	}
	if s := strings.TrimSpace(f.Director); s != "" {
		tx = tx.Where(`LOWER(director) LIKE ? ESCAPE '\'`, containsPattern(s))
	}
	if f.Year != nil {
		tx = tx.Where("year = ?", *f.Year)
	}
	if f.Watched != nil {
		tx = tx.Where("watched = ?", *f.Watched)
	}
	if f.MinRating != nil {
		tx = tx.Where("rating >= ?", *f.MinRating)
	}
	if f.MaxRating != nil {
		tx = tx.Where("rating <= ?", *f.MaxRating)
	}
	return tx
}

// containsPattern builds a lower-cased LIKE pattern with wildcards escaped.
func containsPattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

type statsRow struct {
	Total   int64
	Watched int64
	Avg     *float64
}

// Stats aggregates totals and the mean rating for a user.
func (r *Repository) Stats(ctx context.Context, userID int64) (int64, int64, *float64, error) {
	var row statsRow
	err := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN watched THEN 1 ELSE 0 END), 0) AS watched, AVG(rating) AS avg").
		Where("user_id = ?", userID).
		Scan(&row).Error
	return row.Total, row.Watched, row.Avg, err
}

// Genres returns the distinct non-blank genres of the user, sorted.
func (r *Repository) Genres(ctx context.Context, userID int64) ([]string, error) {
	return r.distinct(ctx, userID, "genre")
}

// Directors returns the distinct non-blank directors of the user, sorted.
func (r *Repository) Directors(ctx context.Context, userID int64) ([]string, error) {
	return r.distinct(ctx, userID, "director")
}

func (r *Repository) distinct(ctx context.Context, userID int64, column string) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Where("user_id = ?", userID).
		Where(fmt.Sprintf("%s IS NOT NULL AND TRIM(%s) <> ''", column, column)).
		Distinct().
		Pluck(column, &values).Error
	if err != nil {
		return nil, err
	}
	slices.Sort(values)
	return values, nil
}

// Search matches q against title, director, genre and notes, newest first.
func (r *Repository) Search(ctx context.Context, userID int64, q string, limit int) ([]models.Movie, error) {
	pattern := containsPattern(q)
	var rows []models.Movie
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where(
			r.db.Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(director) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(genre) LIKE ? ESCAPE '\'`, pattern).
				Or(`LOWER(notes) LIKE ? ESCAPE '\'`, pattern),
		).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListAll returns every movie newest first with the owner preloaded.
func (r *Repository) ListAll(ctx context.Context) ([]models.Movie, error) {
	var rows []models.Movie
	err := r.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "email")
		}).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// OwnerOf returns the owning user id of a movie, or gorm.ErrRecordNotFound.
func (r *Repository) OwnerOf(ctx context.Context, id int64) (int64, error) {
	var owners []int64
	if err := r.db.WithContext(ctx).Model(&models.Movie{}).Where("id = ?", id).Limit(1).Pluck("user_id", &owners).Error; err != nil {
		return 0, err
	}
	if len(owners) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return owners[0], nil
}

// Count returns the number of movies across all users.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Movie{}).Count(&n).Error
	return n, err
}

// TopGenres ranks non-blank genres by movie count across all users.
func (r *Repository) TopGenres(ctx context.Context, limit int) ([]GenreCount, error) {
	var rows []GenreCount
	err := r.db.WithContext(ctx).
		Model(&models.Movie{}).
		Select("genre, COUNT(*) AS count").
		Where("genre IS NOT NULL AND TRIM(genre) <> ''").
		Group("genre").
		Order("count DESC, genre ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
