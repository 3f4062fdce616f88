package controllers

import (
	"math"
	"net/http"
	"strings"

	"github.com/angelmondragon/watchlist-backend/api/responses"
	"github.com/angelmondragon/watchlist-backend/api/validators"
	"github.com/angelmondragon/watchlist-backend/internal/movies"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"github.com/angelmondragon/watchlist-backend/pkg/pagination"
)

const maxFilterLength = 255

func moviesUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	err := pkgerrors.New(pkgerrors.CodeInternal, "movie service unavailable")
	responses.WriteError(r.Context(), logg, w, err)
}

func MovieCreate(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body movies.CreateMovieRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movie, err := svc.Create(r.Context(), principal.ID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, movie)
	}
}

// MovieList returns the caller's movies, filtered, sorted and paginated.
func MovieList(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := parseListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), principal.ID, query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseListQuery(r *http.Request) (movies.ListQuery, error) {
	var q movies.ListQuery

	page, err := validators.ParseQueryInt(r, "page", pagination.DefaultPage, 1, math.MaxInt32)
	if err != nil {
		return q, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return q, err
	}
	q.Pagination = pagination.Params{Page: page, Limit: limit}

	if q.Filters.Year, err = validators.ParseOptionalQueryInt(r, "year"); err != nil {
		return q, err
	}
	if q.Filters.Watched, err = validators.ParseOptionalQueryBool(r, "watched"); err != nil {
		return q, err
	}
	if q.Filters.MinRating, err = validators.ParseOptionalQueryFloat(r, "min_rating", movies.MinRating, movies.MaxRating); err != nil {
		return q, err
	}
	if q.Filters.MaxRating, err = validators.ParseOptionalQueryFloat(r, "max_rating", movies.MinRating, movies.MaxRating); err != nil {
		return q, err
	}

	values := r.URL.Query()
	q.Filters.Search = validators.SanitizeString(values.Get("search"), maxFilterLength)
	q.Filters.Genre = validators.SanitizeString(values.Get("genre"), maxFilterLength)
	q.Filters.Director = validators.SanitizeString(values.Get("director"), maxFilterLength)
	q.Filters.SortBy = strings.TrimSpace(values.Get("sort_by"))
	q.Filters.SortOrder = strings.TrimSpace(values.Get("sort_order"))
	return q, nil
}

func MovieStats(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.Stats(r.Context(), principal.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func MovieGenres(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		genres, err := svc.Genres(r.Context(), principal.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, genres)
	}
}

func MovieDirectors(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		directors, err := svc.Directors(r.Context(), principal.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, directors)
	}
}

func MovieSearch(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := validators.SanitizeString(r.URL.Query().Get("q"), maxFilterLength)
		found, err := svc.Search(r.Context(), principal.ID, q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

// MovieListAll is the admin view over every user's movies.
func MovieListAll(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}

		all, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, all)
	}
}

// MovieGet assumes the ownership check already ran in the guard.
func MovieGet(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		id, err := pathID(r, "id", "movie")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movie, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movie)
	}
}

func MovieUpdate(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		id, err := pathID(r, "id", "movie")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body movies.UpdateMovieRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movie, err := svc.Update(r.Context(), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, movie)
	}
}

type deletedMovieResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// MovieDelete serves both the owner delete and the admin force delete; the
// routes differ only in policy.
func MovieDelete(svc movies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			moviesUnavailable(w, r, logg)
			return
		}
		id, err := pathID(r, "id", "movie")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "movie_id", id), "movie.deleted")
		}
		responses.WriteSuccess(w, deletedMovieResponse{Message: "movie deleted", ID: id})
	}
}
