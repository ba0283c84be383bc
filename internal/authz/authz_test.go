package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubject []string

func (s stubSubject) GrantedPermissions() []string { return s }

func TestPermissionsFor_NonEmptySubsetOfUniverse(t *testing.T) {
	universe := Universe()

	for _, role := range AllRoles {
		t.Run(role.String(), func(t *testing.T) {
			perms := PermissionsFor(role)
			require.NotEmpty(t, perms)
			assert.Subset(t, universe, perms)
		})
	}
}

func TestPermissionsFor_AdminIsSuperset(t *testing.T) {
	admin := PermissionsFor(RoleAdmin)

	for _, role := range AllRoles {
		assert.Subset(t, admin, PermissionsFor(role), "admin should include every %s permission", role)
	}
}

func TestPermissionsFor_ReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleStudent)
	perms[0] = SettingsModify

	assert.NotContains(t, PermissionsFor(RoleStudent), SettingsModify)
}

func TestPermissionsFor_UnknownRole(t *testing.T) {
	assert.Empty(t, PermissionsFor(Role("janitor")))
}

func TestPermissionsFor_Table(t *testing.T) {
	assert.ElementsMatch(t, []Permission{
		EquipmentRead, ChemicalRead, CheckInOutCreate, CheckInOutRead, MaintenanceCreate, MaintenanceRead,
	}, PermissionsFor(RoleLabAssistant))

	assert.ElementsMatch(t, []Permission{
		EquipmentRead, EquipmentUpdate, ChemicalRead, ChemicalUpdate,
		CheckInOutCreate, CheckInOutRead, MaintenanceRead, ReportsView,
	}, PermissionsFor(RoleTeacher))
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name       string
		subject    Subject
		permission Permission
		expected   bool
	}{
		{name: "nil subject", subject: nil, permission: EquipmentRead, expected: false},
		{name: "exact match", subject: stubSubject{"equipment:read"}, permission: EquipmentRead, expected: true},
		{name: "missing", subject: stubSubject{"equipment:read"}, permission: EquipmentUpdate, expected: false},
		{name: "no wildcard support", subject: stubSubject{"equipment:*"}, permission: EquipmentRead, expected: false},
		{name: "empty list", subject: stubSubject{}, permission: EquipmentRead, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HasPermission(tt.subject, tt.permission))
		})
	}
}

func TestHasAny(t *testing.T) {
	subject := stubSubject{"reports:view"}

	assert.True(t, HasAny(subject, ReportsGenerate, ReportsView))
	assert.False(t, HasAny(subject, ReportsGenerate))
	assert.False(t, HasAny(nil, ReportsView))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("")
	assert.NoError(t, err)
	assert.Equal(t, RoleStudent, role)

	role, err = ParseRole(" lab-assistant ")
	assert.NoError(t, err)
	assert.Equal(t, RoleLabAssistant, role)

	_, err = ParseRole("superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestPermission_Resource(t *testing.T) {
	assert.Equal(t, "checkinout", CheckInOutCreate.Resource())
}

func TestRequire(t *testing.T) {
	assert.NoError(t, Require(stubSubject{"users:manage"}, UsersManage))
	assert.ErrorIs(t, Require(stubSubject{"users:manage"}, SettingsModify), ErrForbidden)
	assert.ErrorIs(t, Require(nil, EquipmentRead), ErrForbidden)
}
