package auth

import "github.com/dvmarques/sessionauth/internal/server/models"

// RoleAllowed decides whether a caller with the given role may use a
// route declaring the required roles. An empty requirement allows
// everyone. Pure and stateless.
func RoleAllowed(required []models.UserRole, role models.UserRole) bool {
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if r == role {
			return true
		}
	}
	return false
}
