package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/watchlist-backend/api/responses"
	"github.com/angelmondragon/watchlist-backend/api/validators"
	"github.com/angelmondragon/watchlist-backend/internal/admin"
	"github.com/angelmondragon/watchlist-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
)

func adminUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	err := pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable")
	responses.WriteError(r.Context(), logg, w, err)
}

func actorFrom(r *http.Request) (admin.Actor, error) {
	principal, err := requirePrincipal(r)
	if err != nil {
		return admin.Actor{}, err
	}
	return admin.Actor{ID: principal.ID, Email: principal.Email}, nil
}

func AdminListUsers(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminUnavailable(w, r, logg)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListUsers(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminAnalytics(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminUnavailable(w, r, logg)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Analytics(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminChangeRole(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminUnavailable(w, r, logg)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := pathID(r, "id", "user")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body admin.ChangeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ChangeRole(r.Context(), actor, userID, body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminDeleteUser(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminUnavailable(w, r, logg)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := pathID(r, "id", "user")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DeleteUser(r.Context(), actor, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// AdminCreateAdmin lets an existing admin create another one.
func AdminCreateAdmin(svc admin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminUnavailable(w, r, logg)
			return
		}
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body auth.CreateAdminRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateAdmin(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type probeResponse struct {
	Message   string    `json:"message"`
	User      string    `json:"user"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// AdminProbe answers once the guard chain has let the caller through. It
// exists to demonstrate the role and permission stages in isolation.
func AdminProbe(message string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, probeResponse{
			Message:   message,
			User:      principal.Email,
			Role:      principal.Role.String(),
			Timestamp: time.Now().UTC(),
		})
	}
}
