package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "User", want: RoleMember},
		{raw: "Member", want: RoleMember},
		{raw: "Staff", want: RoleStaff},
		{raw: "Admin", want: RoleAdmin},
		{raw: "admin", wantErr: true},
		{raw: "SuperUser", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRole(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnrecognizedRole)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("User").Valid(), "legacy value must be normalized before use")
	assert.False(t, Role("Intern").Valid())
}

func TestUserProfile_CloneIsIndependent(t *testing.T) {
	id := int64(42)
	exp := time.Unix(1700000000, 0).UTC()
	original := UserProfile{
		Email:     "a@b.com",
		Role:      RoleMember,
		UserID:    &id,
		ExpiresAt: &exp,
		Claims:    map[string]interface{}{"plan": "pro"},
	}

	clone := original.Clone()
	*clone.UserID = 7
	clone.Claims["plan"] = "free"

	assert.Equal(t, int64(42), *original.UserID)
	assert.Equal(t, "pro", original.Claims["plan"])
	assert.True(t, clone.HasUserID())
}
