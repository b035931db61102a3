// Package auth holds the role and ownership predicates. Authentication itself
// is an upstream concern; handlers receive the caller's identity in headers.
package auth

import "github.com/google/uuid"

// Role is the closed set of caller roles.
type Role string

const (
	RoleBorrower Role = "borrower"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

var roleRank = map[Role]int{
	RoleBorrower: 1,
	RoleStaff:    2,
	RoleAdmin:    3,
}

// ParseRole maps a header value to a Role, defaulting unknown values to
// borrower so an absent auth layer degrades to least privilege.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return RoleBorrower
	}
	return r
}

// Authorize reports whether role meets the required role.
func Authorize(role, required Role) bool {
	return roleRank[role] >= roleRank[required]
}

// IsOwner reports whether the caller may act on a resource owned by ownerID.
// Staff and admins may act on anything; borrowers only on their own resources.
// A resource whose owner was cleared (deleted account) is staff-only.
func IsOwner(role Role, userID uuid.UUID, ownerID *uuid.UUID) bool {
	if Authorize(role, RoleStaff) {
		return true
	}
	return ownerID != nil && *ownerID == userID
}
