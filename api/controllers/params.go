package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/watchlist-backend/internal/access"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
)

// pathID parses a positive integer path parameter. Malformed ids are reported
// as not found so they never reveal anything about stored resources.
func pathID(r *http.Request, name, resource string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, resource+" not found")
	}
	return id, nil
}

func requirePrincipal(r *http.Request) (*access.Principal, error) {
	p := access.PrincipalFrom(r.Context())
	if p == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}
