// Package routing decides which portal a navigation request may reach.
//
// Decide is a pure function of the requested path and the session snapshot;
// it keeps no state and is safe to call from any goroutine.
package routing

import (
	"path"
	"strings"

	"github.com/rankboard/portalgate/domain/entity"
)

const (
	PathRoot      = "/"
	PathLogin     = "/login"
	PathAdmin     = "/admin"
	PathStaff     = "/staff"
	PathDashboard = "/dashboard"
)

// Kind tells the caller whether to render or navigate away.
type Kind string

const (
	KindRender   Kind = "render"
	KindRedirect Kind = "redirect"
)

// Portal names the view a decision resolves to.
type Portal string

const (
	PortalLanding Portal = "landing"
	PortalLogin   Portal = "login"
	PortalMember  Portal = "member"
	PortalStaff   Portal = "staff"
	PortalAdmin   Portal = "admin"
)

// Decision is the outcome of one navigation intent. For redirects Location is
// the target path; for renders it is the (cleaned) requested path.
type Decision struct {
	Kind     Kind   `json:"kind"`
	Portal   Portal `json:"portal"`
	Location string `json:"location"`
}

func (d Decision) IsRedirect() bool {
	return d.Kind == KindRedirect
}

type pathClass int

const (
	classOther pathClass = iota
	classRoot
	classLogin
	classAdmin
	classStaff
)

// CanonicalHome returns the landing path for an authenticated role. ok is
// false for roles outside the enum.
func CanonicalHome(role entity.Role) (string, bool) {
	switch role {
	case entity.RoleAdmin:
		return PathAdmin, true
	case entity.RoleStaff:
		return PathStaff, true
	case entity.RoleMember:
		return PathDashboard, true
	default:
		return "", false
	}
}

// Decide maps (path, session) to exactly one decision. A nil profile means no
// session. A profile with a role outside the enum is treated as no session.
func Decide(requested string, profile *entity.UserProfile) Decision {
	p := CleanPath(requested)
	role, authenticated := sessionRole(profile)

	switch classify(p) {
	case classAdmin:
		if !authenticated {
			return redirect(PathLogin)
		}
		switch role {
		case entity.RoleAdmin:
			return render(PortalAdmin, p)
		case entity.RoleStaff:
			return redirect(PathStaff)
		default:
			return redirect(PathDashboard)
		}

	case classStaff:
		if !authenticated {
			return redirect(PathLogin)
		}
		switch role {
		case entity.RoleStaff:
			return render(PortalStaff, p)
		case entity.RoleAdmin:
			return redirect(PathAdmin)
		default:
			return redirect(PathDashboard)
		}

	case classLogin:
		if !authenticated {
			return render(PortalLogin, p)
		}
		home, _ := CanonicalHome(role)
		return redirect(home)

	case classRoot:
		return render(PortalLanding, PathRoot)

	default:
		if !authenticated {
			return redirect(PathLogin)
		}
		switch role {
		case entity.RoleMember:
			return render(PortalMember, p)
		case entity.RoleAdmin:
			return redirect(PathAdmin)
		default:
			return redirect(PathStaff)
		}
	}
}

// DecideAfterLogin is the navigation issued once an auth exchange resolves:
// straight to the role's canonical home, or back to login when the profile
// carries no usable role.
func DecideAfterLogin(profile *entity.UserProfile) Decision {
	role, ok := sessionRole(profile)
	if !ok {
		return redirect(PathLogin)
	}
	home, _ := CanonicalHome(role)
	return redirect(home)
}

// CleanPath strips query and fragment, enforces a leading slash and removes
// dot segments and trailing slashes.
func CleanPath(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return PathRoot
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return path.Clean(raw)
}

func classify(p string) pathClass {
	switch {
	case p == PathRoot:
		return classRoot
	case p == PathLogin:
		return classLogin
	case underPrefix(p, PathAdmin):
		return classAdmin
	case underPrefix(p, PathStaff):
		return classStaff
	default:
		return classOther
	}
}

func underPrefix(p, prefix string) bool {
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func sessionRole(profile *entity.UserProfile) (entity.Role, bool) {
	if profile == nil || !profile.Role.Valid() {
		return "", false
	}
	return profile.Role, true
}

func render(portal Portal, location string) Decision {
	return Decision{Kind: KindRender, Portal: portal, Location: location}
}

func redirect(location string) Decision {
	return Decision{Kind: KindRedirect, Portal: portalFor(location), Location: location}
}

func portalFor(location string) Portal {
	switch location {
	case PathAdmin:
		return PortalAdmin
	case PathStaff:
		return PortalStaff
	case PathLogin:
		return PortalLogin
	default:
		return PortalMember
	}
}
