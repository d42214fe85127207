package models

import "strings"

// Role represents a portal permission tier.
type Role string

const (
	RoleViewer      Role = "Viewer"
	RoleContributor Role = "Contributor"
	RoleApprover    Role = "Approver"
	RoleAdmin       Role = "Admin"
)

// roleLevels is the fixed total order used by every authorization check.
// Comparisons must go through Level, never through string ordering.
var roleLevels = map[Role]int{
	RoleViewer:      0,
	RoleContributor: 1,
	RoleApprover:    2,
	RoleAdmin:       3,
}

// Level returns the ordinal of the role. Unknown roles rank below Viewer.
func (r Role) Level() int {
	if lvl, ok := roleLevels[r]; ok {
		return lvl
	}
	return -1
}

// AtLeast reports whether the role meets the given minimum.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

// ParseRole maps a string onto a Role, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer, true
	case "contributor":
		return RoleContributor, true
	case "approver":
		return RoleApprover, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// AuthenticatedUser is the request-scoped identity attached by the auth
// middleware after token verification. It is never persisted.
type AuthenticatedUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
}
