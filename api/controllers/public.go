package controllers

import (
	"net/http"

	"github.com/angelmondragon/watchlist-backend/api/responses"
	"github.com/angelmondragon/watchlist-backend/internal/public"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
)

func publicUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	err := pkgerrors.New(pkgerrors.CodeInternal, "public service unavailable")
	responses.WriteError(r.Context(), logg, w, err)
}

func PublicHealth(svc public.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			publicUnavailable(w, r, logg)
			return
		}
		responses.WriteSuccess(w, svc.Health(r.Context()))
	}
}

func PublicStats(svc public.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			publicUnavailable(w, r, logg)
			return
		}
		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func PublicInfo(svc public.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			publicUnavailable(w, r, logg)
			return
		}
		responses.WriteSuccess(w, svc.Info(r.Context()))
	}
}
