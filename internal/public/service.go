// Package public serves the unauthenticated informational endpoints.
package public

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/watchlist-backend/internal/movies"
	"github.com/angelmondragon/watchlist-backend/internal/users"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
)

const publicGenresLimit = 5

type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Environment   string    `json:"environment"`
	Version       string    `json:"version"`
}

type StatsResponse struct {
	TotalUsers    int64               `json:"total_users"`
	VerifiedUsers int64               `json:"verified_users"`
	TotalMovies   int64               `json:"total_movies"`
	TopGenres     []movies.GenreCount `json:"top_genres"`
	LastUpdated   time.Time           `json:"last_updated"`
}

type InfoResponse struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Version     string              `json:"version"`
	Features    []string            `json:"features"`
	Endpoints   map[string][]string `json:"endpoints"`
}

// Service exposes the public endpoints.
type Service interface {
	Health(ctx context.Context) HealthResponse
	Stats(ctx context.Context) (*StatsResponse, error)
	Info(ctx context.Context) InfoResponse
}

type ServiceParams struct {
	Users     *users.Repository
	Movies    *movies.Repository
	Logger    *logger.Logger
	App       config.AppConfig
	StartedAt time.Time
	Now       func() time.Time
}

type service struct {
	users     *users.Repository
	movies    *movies.Repository
	logg      *logger.Logger
	app       config.AppConfig
	startedAt time.Time
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil || params.Movies == nil {
		return nil, fmt.Errorf("user and movie repositories are required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	started := params.StartedAt
	if started.IsZero() {
		started = now()
	}
	return &service{
		users:     params.Users,
		movies:    params.Movies,
		logg:      params.Logger,
		app:       params.App,
		startedAt: started,
		now:       func() time.Time { return now().UTC() },
	}, nil
}

func (s *service) Health(_ context.Context) HealthResponse {
	now := s.now()
	return HealthResponse{
		Status:        "ok",
		Timestamp:     now,
		UptimeSeconds: now.Sub(s.startedAt).Seconds(),
		Environment:   s.app.Env,
		Version:       s.app.Version,
	}
}

// Stats returns anonymised platform totals computed from the store on every
// call.
func (s *service) Stats(ctx context.Context) (*StatsResponse, error) {
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
	genres, err := s.movies.TopGenres(ctx, publicGenresLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank genres")
	}
	if genres == nil {
		genres = []movies.GenreCount{}
	}

	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"total_users":  totalUsers,
		"total_movies": totalMovies,
	}), "public.stats.computed")

	return &StatsResponse{
		TotalUsers:    totalUsers,
		VerifiedUsers: verified,
		TotalMovies:   totalMovies,
		TopGenres:     genres,
		LastUpdated:   s.now(),
	}, nil
}

func (s *service) Info(_ context.Context) InfoResponse {
	return InfoResponse{
		Name:        s.app.Name,
		Description: "Personal movie watchlist API",
		Version:     s.app.Version,
		Features: []string{
			"Registration with email verification",
			"Two-factor login by email code",
			"Personal movie management",
			"USER and ADMIN roles",
			"Statistics and analytics",
		},
		Endpoints: map[string][]string{
			"public": {
				"GET /public/health",
				"GET /public/stats",
				"GET /public/info",
			},
			"auth": {
				"POST /auth/register",
				"POST /auth/verify-email",
				"POST /auth/login",
				"POST /auth/verify-login",
				"GET /auth/me",
			},
			"movies": {
				"GET /movies",
				"POST /movies",
				"GET /movies/stats",
				"GET /movies/admin/all",
			},
		},
	}
}
