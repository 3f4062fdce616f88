// Package rbac holds the static role to permission table. The table is built
// once at init and never mutated; callers receive copies.
package rbac

import "github.com/angelmondragon/watchlist-backend/pkg/enums"

var userPermissions = []enums.Permission{
	enums.PermissionReadOwnMovies,
	enums.PermissionWriteOwnMovies,
	enums.PermissionDeleteOwnMovies,
}

var rolePermissions = map[enums.Role][]enums.Permission{
	enums.RoleUser: userPermissions,
	enums.RoleAdmin: append(append([]enums.Permission(nil), userPermissions...),
		enums.PermissionReadAllMovies,
		enums.PermissionManageUsers,
		enums.PermissionDeleteAnyMovie,
		enums.PermissionViewAnalytics,
		enums.PermissionDeleteUsers,
	),
}

var roleDescriptions = map[enums.Role]string{
	enums.RoleUser:  "Standard user: manages their own watchlist",
	enums.RoleAdmin: "Administrator: full access to users, movies and analytics",
}

// PermissionsFor returns the permissions granted to role. Unknown roles get none.
func PermissionsFor(role enums.Role) []enums.Permission {
	return append([]enums.Permission(nil), rolePermissions[role]...)
}

// HasPermissions reports whether role holds every permission in required.
// An empty requirement is always satisfied.
func HasPermissions(role enums.Role, required ...enums.Permission) bool {
	granted := rolePermissions[role]
	for _, want := range required {
		if !contains(granted, want) {
			return false
		}
	}
	return true
}

// Describe returns a human readable summary of role.
func Describe(role enums.Role) string {
	if desc, ok := roleDescriptions[role]; ok {
		return desc
	}
	return "Unknown role"
}

func contains(perms []enums.Permission, want enums.Permission) bool {
	for _, p := range perms {
		if p == want {
			return true
		}
	}
	return false
}
