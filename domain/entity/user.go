package entity

import (
	"errors"
	"time"
)

// Role is the closed set of portal roles a session can carry.
type Role string

const (
	RoleMember Role = "Member"
	RoleStaff  Role = "Staff"
	RoleAdmin  Role = "Admin"

	// legacyMemberRole is what the backend still issues for members.
	legacyMemberRole = "User"
)

var ErrUnrecognizedRole = errors.New("unrecognized role")

// ParseRole normalizes a backend role claim. "User" becomes Member; anything
// outside the enum is rejected.
func ParseRole(raw string) (Role, error) {
	switch raw {
	case legacyMemberRole, string(RoleMember):
		return RoleMember, nil
	case string(RoleStaff):
		return RoleStaff, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", ErrUnrecognizedRole
	}
}

// Valid reports whether r is one of the three portal roles.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleStaff || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// UserProfile is the in-memory view of a session, rebuilt from the access
// token payload. It is never sent back to the backend.
type UserProfile struct {
	Email     string                 `json:"email"`
	FullName  string                 `json:"fullName"`
	Role      Role                   `json:"role"`
	UserID    *int64                 `json:"userId,omitempty"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
	IssuedAt  *time.Time             `json:"issuedAt,omitempty"`
	Claims    map[string]interface{} `json:"claims,omitempty"`
}

// HasUserID reports whether the token carried a user id claim.
func (p *UserProfile) HasUserID() bool {
	return p != nil && p.UserID != nil
}

// Clone returns a deep-enough copy so callers can't mutate store state.
func (p UserProfile) Clone() UserProfile {
	out := p
	if p.UserID != nil {
		id := *p.UserID
		out.UserID = &id
	}
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		out.ExpiresAt = &t
	}
	if p.IssuedAt != nil {
		t := *p.IssuedAt
		out.IssuedAt = &t
	}
	if p.Claims != nil {
		out.Claims = make(map[string]interface{}, len(p.Claims))
		for k, v := range p.Claims {
			out.Claims[k] = v
		}
	}
	return out
}
