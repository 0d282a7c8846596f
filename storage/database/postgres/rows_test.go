package pgrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matokeo/core/user"
)

func TestUserRow(t *testing.T) {
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		usr  user.User
	}{
		{
			name: "complete",
			usr: user.User{
				ID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", Name: "Jane", Username: "jane", Email: "jane@school.test",
				IsActive: true, Roles: []string{user.RoleTeacher}, PasswordHash: []byte("hash"),
				CreatedAt: now, UpdatedAt: now, LastLogin: now.Add(time.Hour),
			},
		},
		{
			name: "no email, never logged in",
			usr:  user.User{ID: "8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d11", Username: "john", Roles: []string{}, CreatedAt: now, UpdatedAt: now},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := toUserRow(tt.usr)
			assert.Equal(t, tt.usr.Email != "", row.Email.Valid)
			assert.Equal(t, !tt.usr.LastLogin.IsZero(), row.LastLogin.Valid)
			assert.Equal(t, tt.usr, row.user())
		})
	}
}

func TestUtcPtr(t *testing.T) {
	assert.Nil(t, utcPtr(null.Time{}))

	eat := time.FixedZone("EAT", 3*60*60)
	got := utcPtr(null.TimeFrom(time.Date(2024, 2, 1, 12, 0, 0, 0, eat)))
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), *got)
}

func TestValidUUIDs(t *testing.T) {
	got := validUUIDs([]string{"8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10", "1", "", "nope"})
	assert.Equal(t, []string{"8c7b4d4e-8f5c-4e8e-9a59-3f5b9c1a2d10"}, got)
}
