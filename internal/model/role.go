// Package model defines the durable principal records and the role tags
// embedded in access tokens.
package model

// Role discriminates which principal table a token subject belongs to.
// RoleAny is only ever used in authorization descriptors; it is never
// stored against a principal or embedded in a token.
type Role string

const (
	RoleUser    Role = "USER"
	RolePartner Role = "PARTNER"
	RoleAdmin   Role = "ADMIN"
	RoleAny     Role = "ANY"
)

// ParseRole maps a token role claim to a known tag. RoleAny is not a valid
// claim value; tokens carrying it (or anything unknown) must be rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RolePartner, RoleAdmin:
		return Role(s), true
	}
	return "", false
}
