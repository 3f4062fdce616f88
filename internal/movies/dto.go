package movies

import (
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/pagination"
)

// CreateMovieRequest is the body of POST /movies.
type CreateMovieRequest struct {
	Title     string   `json:"title" validate:"required,max=255"`
	Year      *int     `json:"year,omitempty" validate:"omitempty,gte=1888"`
	Genre     *string  `json:"genre,omitempty" validate:"omitempty,max=255"`
	Director  *string  `json:"director,omitempty" validate:"omitempty,max=255"`
	Rating    *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Watched   *bool    `json:"watched,omitempty"`
	WatchedAt *string  `json:"watched_at,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// UpdateMovieRequest is the body of PATCH /movies/{id}. Absent fields are left
// untouched.
type UpdateMovieRequest struct {
	Title     *string  `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Year      *int     `json:"year,omitempty" validate:"omitempty,gte=1888"`
	Genre     *string  `json:"genre,omitempty" validate:"omitempty,max=255"`
	Director  *string  `json:"director,omitempty" validate:"omitempty,max=255"`
	Rating    *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	Watched   *bool    `json:"watched,omitempty"`
	WatchedAt *string  `json:"watched_at,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// ListFilters are the list query knobs; they are echoed back in the response.
type ListFilters struct {
	Search    string   `json:"search,omitempty"`
	Genre     string   `json:"genre,omitempty"`
	Director  string   `json:"director,omitempty"`
	Year      *int     `json:"year,omitempty"`
	Watched   *bool    `json:"watched,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
	MaxRating *float64 `json:"max_rating,omitempty"`
	SortBy    string   `json:"sort_by"`
	SortOrder string   `json:"sort_order"`
}

// ListQuery combines filters and pagination for one list call.
type ListQuery struct {
	Filters    ListFilters
	Pagination pagination.Params
}

// MovieDTO is the transport shape of a movie.
type MovieDTO struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Year      *int       `json:"year"`
	Genre     *string    `json:"genre"`
	Director  *string    `json:"director"`
	Rating    *float64   `json:"rating"`
	Watched   bool       `json:"watched"`
	WatchedAt *time.Time `json:"watched_at"`
	Notes     *string    `json:"notes"`
	UserID    int64      `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Owner is the owner projection attached to admin listings.
type Owner struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// MovieWithOwner is one row of the admin listing.
type MovieWithOwner struct {
	MovieDTO
	User *Owner `json:"user"`
}

// ListResult is a page of the caller's movies.
type ListResult struct {
	Data       []MovieDTO          `json:"data"`
	Pagination pagination.PageInfo `json:"pagination"`
	Filters    ListFilters         `json:"filters"`
}

// Stats summarises a user's watchlist.
type Stats struct {
	TotalMovies     int64   `json:"total_movies"`
	WatchedMovies   int64   `json:"watched_movies"`
	UnwatchedMovies int64   `json:"unwatched_movies"`
	AvgRating       float64 `json:"avg_rating"`
}

// GenreCount is one row of a genre popularity ranking.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

func FromModel(m *models.Movie) MovieDTO {
	return MovieDTO{
		ID:        m.ID,
		Title:     m.Title,
		Year:      m.Year,
		Genre:     m.Genre,
		Director:  m.Director,
		Rating:    m.Rating,
		Watched:   m.Watched,
		WatchedAt: m.WatchedAt,
		Notes:     m.Notes,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromModels(rows []models.Movie) []MovieDTO {
	out := make([]MovieDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
