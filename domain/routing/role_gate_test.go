package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rankboard/portalgate/domain/entity"
)

func profileWithRole(role string) *entity.UserProfile {
	return &entity.UserProfile{Email: "a@b.com", Role: entity.Role(role)}
}

func TestDecide_Table(t *testing.T) {
	sessions := map[string]*entity.UserProfile{
		"none":   nil,
		"Admin":  profileWithRole("Admin"),
		"Staff":  profileWithRole("Staff"),
		"Member": profileWithRole("Member"),
		"Intern": profileWithRole("Intern"),
	}

	tests := []struct {
		path    string
		session string
		want    Decision
	}{
		{"/admin", "none", Decision{KindRedirect, PortalLogin, "/login"}},
		{"/admin", "Admin", Decision{KindRender, PortalAdmin, "/admin"}},
		{"/admin", "Staff", Decision{KindRedirect, PortalStaff, "/staff"}},
		{"/admin", "Member", Decision{KindRedirect, PortalMember, "/dashboard"}},
		{"/admin", "Intern", Decision{KindRedirect, PortalLogin, "/login"}},

		{"/staff", "none", Decision{KindRedirect, PortalLogin, "/login"}},
		{"/staff", "Admin", Decision{KindRedirect, PortalAdmin, "/admin"}},
		{"/staff", "Staff", Decision{KindRender, PortalStaff, "/staff"}},
		{"/staff", "Member", Decision{KindRedirect, PortalMember, "/dashboard"}},
		{"/staff", "Intern", Decision{KindRedirect, PortalLogin, "/login"}},

		{"/login", "none", Decision{KindRender, PortalLogin, "/login"}},
		{"/login", "Admin", Decision{KindRedirect, PortalAdmin, "/admin"}},
		{"/login", "Staff", Decision{KindRedirect, PortalStaff, "/staff"}},
		{"/login", "Member", Decision{KindRedirect, PortalMember, "/dashboard"}},
		{"/login", "Intern", Decision{KindRender, PortalLogin, "/login"}},

		// "/" renders the landing page for every session, as the table says.
		// A member who logs in while on "/" still ends up on /dashboard: the
		// login flow issues DecideAfterLogin, not Decide("/"). Keep these rows
		// as they are; see TestMemberLoginOnRootLandsOnDashboard.
		{"/", "none", Decision{KindRender, PortalLanding, "/"}},
		{"/", "Admin", Decision{KindRender, PortalLanding, "/"}},
		{"/", "Staff", Decision{KindRender, PortalLanding, "/"}},
		{"/", "Member", Decision{KindRender, PortalLanding, "/"}},
		{"/", "Intern", Decision{KindRender, PortalLanding, "/"}},

		{"/dashboard", "none", Decision{KindRedirect, PortalLogin, "/login"}},
		{"/dashboard", "Admin", Decision{KindRedirect, PortalAdmin, "/admin"}},
		{"/dashboard", "Staff", Decision{KindRedirect, PortalStaff, "/staff"}},
		{"/dashboard", "Member", Decision{KindRender, PortalMember, "/dashboard"}},
		{"/dashboard", "Intern", Decision{KindRedirect, PortalLogin, "/login"}},

		{"/unknown", "none", Decision{KindRedirect, PortalLogin, "/login"}},
		{"/unknown", "Admin", Decision{KindRedirect, PortalAdmin, "/admin"}},
		{"/unknown", "Staff", Decision{KindRedirect, PortalStaff, "/staff"}},
		{"/unknown", "Member", Decision{KindRender, PortalMember, "/unknown"}},
		{"/unknown", "Intern", Decision{KindRedirect, PortalLogin, "/login"}},
	}

	for _, tt := range tests {
		t.Run(tt.path+"/"+tt.session, func(t *testing.T) {
			profile := sessions[tt.session]
			first := Decide(tt.path, profile)
			second := Decide(tt.path, profile)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second, "decision must be deterministic")
		})
	}
}

func TestDecide_SubPathsFollowPortalClass(t *testing.T) {
	admin := profileWithRole("Admin")
	staff := profileWithRole("Staff")

	assert.Equal(t, Decision{KindRender, PortalAdmin, "/admin/users"}, Decide("/admin/users", admin))
	assert.Equal(t, Decision{KindRedirect, PortalAdmin, "/admin"}, Decide("/staff/tickets", admin))
	assert.Equal(t, Decision{KindRender, PortalStaff, "/staff/tickets"}, Decide("/staff/tickets/", staff))
	// "/administrator" is not under /admin
	assert.Equal(t, Decision{KindRedirect, PortalAdmin, "/admin"}, Decide("/administrator", admin))
}

func TestDecide_UnrecognizedRoleFailsClosed(t *testing.T) {
	crafted := profileWithRole("SuperUser")

	got := Decide("/dashboard", crafted)

	assert.Equal(t, KindRedirect, got.Kind)
	assert.Equal(t, PathLogin, got.Location)
}

// A member who signs in from "/" is sent to /dashboard by the post-login
// redirect, while navigating to "/" later keeps showing the landing page.
func TestMemberLoginOnRootLandsOnDashboard(t *testing.T) {
	member := profileWithRole("Member")

	assert.Equal(t, Decision{KindRender, PortalLanding, "/"}, Decide("/", member))
	assert.Equal(t, Decision{KindRedirect, PortalMember, "/dashboard"}, DecideAfterLogin(member))
}

func TestDecideAfterLogin(t *testing.T) {
	tests := []struct {
		name    string
		profile *entity.UserProfile
		want    string
	}{
		{"member", profileWithRole("Member"), "/dashboard"},
		{"staff", profileWithRole("Staff"), "/staff"},
		{"admin", profileWithRole("Admin"), "/admin"},
		{"unknown role", profileWithRole("Guest"), "/login"},
		{"no session", nil, "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideAfterLogin(tt.profile)
			assert.True(t, got.IsRedirect())
			assert.Equal(t, tt.want, got.Location)
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"dashboard":            "/dashboard",
		"/dashboard/":          "/dashboard",
		"/admin/../dashboard":  "/dashboard",
		"/keywords?page=2":     "/keywords",
		"/content#section-two": "/content",
		"//staff":              "/staff",
	}

	for in, want := range tests {
		assert.Equal(t, want, CleanPath(in), "input %q", in)
	}
}

func TestCanonicalHome(t *testing.T) {
	home, ok := CanonicalHome(entity.RoleMember)
	assert.True(t, ok)
	assert.Equal(t, "/dashboard", home)

	_, ok = CanonicalHome(entity.Role("Intern"))
	assert.False(t, ok)
}
