package movies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

const (
	// MinYear is the year of the earliest surviving motion picture.
	MinYear = 1888
	// futureYears bounds how far ahead a release year may be.
	futureYears = 5
	// SearchLimit caps quick search results.
	SearchLimit = 20

	MinRating = 0.0
	MaxRating = 10.0

	DefaultSortBy    = "created_at"
	DefaultSortOrder = "desc"
)

// Service exposes the watchlist operations. Ownership of id-addressed movies
// is enforced by the guard chain before these methods run.
type Service interface {
	Create(ctx context.Context, userID int64, req CreateMovieRequest) (*MovieDTO, error)
	List(ctx context.Context, userID int64, q ListQuery) (*ListResult, error)
	Get(ctx context.Context, id int64) (*MovieDTO, error)
	Update(ctx context.Context, id int64, req UpdateMovieRequest) (*MovieDTO, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, userID int64) (*Stats, error)
	Genres(ctx context.Context, userID int64) ([]string, error)
	Directors(ctx context.Context, userID int64) ([]string, error)
	Search(ctx context.Context, userID int64, q string) ([]MovieDTO, error)
	ListAll(ctx context.Context) ([]MovieWithOwner, error)
}

// ServiceParams groups dependencies for the movies service.
type ServiceParams struct {
	Repo *Repository
	Now  func() time.Time
}

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService builds a movies service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "movie repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

func (s *service) Create(ctx context.Context, userID int64, req CreateMovieRequest) (*MovieDTO, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if err := s.checkYear(req.Year); err != nil {
		return nil, err
	}
	if err := checkRating(req.Rating); err != nil {
		return nil, err
	}
	watchedAt, err := parseWatchedAt(req.WatchedAt)
	if err != nil {
		return nil, err
	}

	movie := &models.Movie{
		Title:     title,
		Year:      req.Year,
		Genre:     req.Genre,
		Director:  req.Director,
		Rating:    req.Rating,
		WatchedAt: watchedAt,
		Notes:     req.Notes,
		UserID:    userID,
	}
	if req.Watched != nil {
		movie.Watched = *req.Watched
	}
	created, err := s.repo.Create(ctx, movie)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create movie")
	}
	dto := FromModel(created)
	return &dto, nil
}

func (s *service) List(ctx context.Context, userID int64, q ListQuery) (*ListResult, error) {
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, err
	}
	q.Filters = filters
	q.Pagination = q.Pagination.Normalize()

	rows, total, err := s.repo.List(ctx, userID, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movies")
	}
	return &ListResult{
		Data:       fromModels(rows),
		Pagination: pagination.NewPageInfo(q.Pagination, total),
		Filters:    filters,
	}, nil
}

func (s *service) Get(ctx context.Context, id int64) (*MovieDTO, error) {
	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(movie)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id int64, req UpdateMovieRequest) (*MovieDTO, error) {
	updates := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if req.Year != nil {
		if err := s.checkYear(req.Year); err != nil {
			return nil, err
		}
		updates["year"] = *req.Year
	}
	if req.Genre != nil {
		updates["genre"] = *req.Genre
	}
	if req.Director != nil {
		updates["director"] = *req.Director
	}
	if req.Rating != nil {
		if err := checkRating(req.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *req.Rating
	}
	if req.Watched != nil {
		updates["watched"] = *req.Watched
	}
	if req.WatchedAt != nil && strings.TrimSpace(*req.WatchedAt) != "" {
		watchedAt, err := parseWatchedAt(req.WatchedAt)
		if err != nil {
			return nil, err
		}
		updates["watched_at"] = *watchedAt
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	movie, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, lookupError(err)
	}
	dto := FromModel(movie)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete movie")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
	}
	return nil
}

func (s *service) Stats(ctx context.Context, userID int64) (*Stats, error) {
	total, watched, avg, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "movie stats")
	}
	stats := &Stats{
		TotalMovies:     total,
		WatchedMovies:   watched,
		UnwatchedMovies: total - watched,
	}
	if avg != nil {
		stats.AvgRating = decimal.NewFromFloat(*avg).Round(2).InexactFloat64()
	}
	return stats, nil
}

func (s *service) Genres(ctx context.Context, userID int64) ([]string, error) {
	genres, err := s.repo.Genres(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list genres")
	}
	return genres, nil
}

func (s *service) Directors(ctx context.Context, userID int64) ([]string, error) {
	directors, err := s.repo.Directors(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list directors")
	}
	return directors, nil
}

// Search returns an empty slice for a blank query.
func (s *service) Search(ctx context.Context, userID int64, q string) ([]MovieDTO, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []MovieDTO{}, nil
	}
	rows, err := s.repo.Search(ctx, userID, q, SearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search movies")
	}
	return fromModels(rows), nil
}

func (s *service) ListAll(ctx context.Context) ([]MovieWithOwner, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list all movies")
	}
	out := make([]MovieWithOwner, 0, len(rows))
	for i := range rows {
		item := MovieWithOwner{MovieDTO: FromModel(&rows[i])}
		if u := rows[i].User; u != nil {
			item.User = &Owner{ID: u.ID, Email: u.Email}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *service) checkYear(year *int) error {
	if year == nil {
		return nil
	}
	maxYear := s.now().Year() + futureYears
	if *year < MinYear || *year > maxYear {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("year must be between %d and %d", MinYear, maxYear))
	}
	return nil
}

func checkRating(rating *float64) error {
	if rating != nil && (*rating < MinRating || *rating > MaxRating) {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 0 and 10")
	}
	return nil
}

// parseWatchedAt accepts RFC 3339 timestamps or plain dates.
func parseWatchedAt(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "watched_at must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

func normalizeFilters(f ListFilters) (ListFilters, error) {
	f.SortBy = strings.TrimSpace(f.SortBy)
	if f.SortBy == "" {
		f.SortBy = DefaultSortBy
	}
	if _, ok := sortColumns[f.SortBy]; !ok {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "sort_by must be one of title, year, rating, created_at, watched_at")
	}
	f.SortOrder = strings.ToLower(strings.TrimSpace(f.SortOrder))
	if f.SortOrder == "" {
		f.SortOrder = DefaultSortOrder
	}
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "sort_order must be asc or desc")
	}
	if err := checkRating(f.MinRating); err != nil {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "min_rating must be between 0 and 10")
	}
	if err := checkRating(f.MaxRating); err != nil {
		return f, pkgerrors.New(pkgerrors.CodeValidation, "max_rating must be between 0 and 10")
	}
	return f, nil
}

func lookupError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "movie not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load movie")
}
