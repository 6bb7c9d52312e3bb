package auth

import (
	"testing"

	"github.com/dvmarques/sessionauth/internal/server/models"
)

func TestRoleAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		required []models.UserRole
		role     models.UserRole
		want     bool
	}{
		{"no requirement allows user", nil, models.RoleUser, true},
		{"no requirement allows admin", []models.UserRole{}, models.RoleAdmin, true},
		{"admin route rejects user", []models.UserRole{models.RoleAdmin}, models.RoleUser, false},
		{"admin route allows admin", []models.UserRole{models.RoleAdmin}, models.RoleAdmin, true},
		{"multi-role route", []models.UserRole{models.RoleUser, models.RoleAdmin}, models.RoleUser, true},
		{"unknown role rejected", []models.UserRole{models.RoleAdmin}, models.UserRole("root"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RoleAllowed(tc.required, tc.role); got != tc.want {
				t.Fatalf("RoleAllowed(%v, %q) = %v, want %v", tc.required, tc.role, got, tc.want)
			}
		})
	}
}
