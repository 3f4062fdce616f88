// Package access implements the per-request guard chain: token
// authentication, role check, permission check and the opt-in ownership
// check, always in that order.
package access

import "github.com/angelmondragon/watchlist-backend/pkg/enums"

// ResourceType names a resource whose owner can be resolved from an id.
type ResourceType string

const (
	ResourceMovie ResourceType = "movie"
	ResourceUser  ResourceType = "user"
)

const defaultParamName = "id"

// Ownership configures the ownership stage for one endpoint.
type Ownership struct {
	Resource ResourceType
	// ParamName is the path parameter holding the resource id.
	ParamName string
	// AllowAdmin lets ADMIN callers skip the owner comparison.
	AllowAdmin bool
}

// OwnedBy returns an ownership rule on the "id" parameter with the admin
// bypass enabled.
func OwnedBy(resource ResourceType) *Ownership {
	return &Ownership{Resource: resource, ParamName: defaultParamName, AllowAdmin: true}
}

// WithParam reads the resource id from another path parameter.
func (o *Ownership) WithParam(name string) *Ownership {
	cp := *o
	cp.ParamName = name
	return &cp
}

// WithoutAdminBypass enforces the owner comparison for admins too.
func (o *Ownership) WithoutAdminBypass() *Ownership {
	cp := *o
	cp.AllowAdmin = false
	return &cp
}

func (o *Ownership) param() string {
	if o.ParamName == "" {
		return defaultParamName
	}
	return o.ParamName
}

// Policy declares what an endpoint requires. A public policy skips every stage.
type Policy struct {
	Public      bool
	Roles       []enums.Role
	Permissions []enums.Permission
	Ownership   *Ownership
}

// Public is the policy for unauthenticated endpoints.
func Public() Policy {
	return Policy{Public: true}
}

// Authenticated requires a valid token and nothing else.
func Authenticated() Policy {
	return Policy{}
}

// RequirePermissions requires every listed permission.
func RequirePermissions(perms ...enums.Permission) Policy {
	return Policy{Permissions: perms}
}

// AdminWith requires the ADMIN role plus every listed permission.
func AdminWith(perms ...enums.Permission) Policy {
	return Policy{Roles: []enums.Role{enums.RoleAdmin}, Permissions: perms}
}

// Owning adds an ownership rule to the policy.
func (p Policy) Owning(o *Ownership) Policy {
	p.Ownership = o
	return p
}
