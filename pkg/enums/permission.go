package enums

import "fmt"

// Permission is a fine-grained capability checked independently of the role.
type Permission string

const (
	PermissionReadOwnMovies   Permission = "READ_OWN_MOVIES"
	PermissionWriteOwnMovies  Permission = "WRITE_OWN_MOVIES"
	PermissionDeleteOwnMovies Permission = "DELETE_OWN_MOVIES"
	PermissionReadAllMovies   Permission = "READ_ALL_MOVIES"
	PermissionManageUsers     Permission = "MANAGE_USERS"
	PermissionDeleteAnyMovie  Permission = "DELETE_ANY_MOVIE"
	PermissionViewAnalytics   Permission = "VIEW_ANALYTICS"
	PermissionDeleteUsers     Permission = "DELETE_USERS"
)

var validPermissions = []Permission{
	PermissionReadOwnMovies,
	PermissionWriteOwnMovies,
	PermissionDeleteOwnMovies,
	PermissionReadAllMovies,
	PermissionManageUsers,
	PermissionDeleteAnyMovie,
	PermissionViewAnalytics,
	PermissionDeleteUsers,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// parsePermission converts raw input into a Permission.
func parsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}
