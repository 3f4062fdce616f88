package access

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	pkgAuth "github.com/angelmondragon/watchlist-backend/pkg/auth"
	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/watchlist-backend/pkg/errors"
	"github.com/angelmondragon/watchlist-backend/pkg/rbac"
)

// Principal is the authenticated caller for the lifetime of one request.
type Principal struct {
	ID    int64
	Email string
	Role  enums.Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == enums.RoleAdmin
}

// Request is the input threaded through the stages. Authenticate fills in
// Principal; later stages read it.
type Request struct {
	Token     string
	Param     func(name string) string
	Principal *Principal
}

// Stage is one step of the chain. Returning an error aborts the chain.
type Stage func(ctx context.Context, req Request) (Request, error)

// UserValidator resolves a token subject to a live account.
type UserValidator interface {
	ValidateUser(ctx context.Context, userID int64) (*models.User, error)
}

// OwnerResolver returns the owning user id of a resource, or a not-found
// error when it does not exist.
type OwnerResolver interface {
	OwnerOf(ctx context.Context, id int64) (int64, error)
}

// GuardParams names the dependencies of the guard chain.
type GuardParams struct {
	JWTConfig config.JWTConfig
	Users     UserValidator
	Owners    map[ResourceType]OwnerResolver
}

// Guard evaluates policies against incoming requests.
type Guard struct {
	jwtCfg config.JWTConfig
	users  UserValidator
	owners map[ResourceType]OwnerResolver
}

func NewGuard(params GuardParams) (*Guard, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user validator is required")
	}
	owners := make(map[ResourceType]OwnerResolver, len(params.Owners))
	for k, v := range params.Owners {
		owners[k] = v
	}
	return &Guard{jwtCfg: params.JWTConfig, users: params.Users, owners: owners}, nil
}

// Check runs the chain for policy. It returns a nil principal for public
// policies.
func (g *Guard) Check(ctx context.Context, policy Policy, req Request) (*Principal, error) {
	if policy.Public {
		return nil, nil
	}
	stages := []Stage{
		g.Authenticate,
		RequireRoles(policy.Roles...),
		RequirePerms(policy.Permissions...),
		g.CheckOwnership(policy.Ownership),
	}
	var err error
	for _, stage := range stages {
		if req, err = stage(ctx, req); err != nil {
			return nil, err
		}
	}
	return req.Principal, nil
}

// Authenticate verifies the bearer token and loads the caller. The role is
// taken from the stored user so role changes apply to tokens already issued.
func (g *Guard) Authenticate(ctx context.Context, req Request) (Request, error) {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return req, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(g.jwtCfg, token)
	if err != nil {
		return req, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return req, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	user, err := g.users.ValidateUser(ctx, userID)
	if err != nil {
		return req, err
	}
	req.Principal = &Principal{ID: user.ID, Email: user.Email, Role: user.Role}
	return req, nil
}

// RequireRoles passes when the caller's role is one of roles. No roles means
// no restriction.
func RequireRoles(roles ...enums.Role) Stage {
	return func(_ context.Context, req Request) (Request, error) {
		if len(roles) == 0 {
			return req, nil
		}
		if req.Principal == nil {
			return req, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		for _, role := range roles {
			if req.Principal.Role == role {
				return req, nil
			}
		}
		return req, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
}

// RequirePerms passes when the caller's role grants every permission.
func RequirePerms(perms ...enums.Permission) Stage {
	return func(_ context.Context, req Request) (Request, error) {
		if len(perms) == 0 {
			return req, nil
		}
		if req.Principal == nil {
			return req, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		if !rbac.HasPermissions(req.Principal.Role, perms...) {
			return req, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient permissions")
		}
		return req, nil
	}
}

// CheckOwnership compares the resource owner with the caller. A nil rule
// disables the stage.
func (g *Guard) CheckOwnership(rule *Ownership) Stage {
	return func(ctx context.Context, req Request) (Request, error) {
		if rule == nil {
			return req, nil
		}
		if req.Principal == nil {
			return req, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		if rule.AllowAdmin && req.Principal.IsAdmin() {
			return req, nil
		}

		raw := ""
		if req.Param != nil {
			raw = req.Param(rule.param())
		}
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || id <= 0 {
			return req, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", rule.Resource))
		}

		resolver, ok := g.owners[rule.Resource]
		if !ok {
			return req, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no owner resolver for %s", rule.Resource))
		}
		owner, err := resolver.OwnerOf(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return req, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", rule.Resource))
			}
			return req, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve resource owner")
		}
		if owner != req.Principal.ID {
			return req, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("you do not own this %s", rule.Resource))
		}
		return req, nil
	}
}

type principalKey struct{}

// WithPrincipal stores the caller on the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller stored by WithPrincipal, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
