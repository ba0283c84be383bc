package authz

import (
	"errors"
	"slices"
	"strings"
)

var (
	ErrInvalidRole = errors.New("invalid role")
	ErrForbidden   = errors.New("permission denied")
)

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleTeacher      Role = "teacher"
	RoleLabAssistant Role = "lab-assistant"
	RoleStudent      Role = "student"

	// DefaultRole is the least privileged role, assigned when none is given
	DefaultRole = RoleStudent
)

// AllRoles lists every role from most to least privileged
var AllRoles = []Role{RoleAdmin, RoleTeacher, RoleLabAssistant, RoleStudent}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	return slices.Contains(AllRoles, r)
}

// ParseRole validates an untrusted role name. An empty name yields DefaultRole.
func ParseRole(name string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultRole, nil
	}

	role := Role(name)
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Permission is a "<resource>:<action>" capability tag
type Permission string

const (
	EquipmentCreate Permission = "equipment:create"
	EquipmentRead   Permission = "equipment:read"
	EquipmentUpdate Permission = "equipment:update"
	EquipmentDelete Permission = "equipment:delete"

	ChemicalCreate Permission = "chemical:create"
	ChemicalRead   Permission = "chemical:read"
	ChemicalUpdate Permission = "chemical:update"
	ChemicalDelete Permission = "chemical:delete"

	CheckInOutCreate Permission = "checkinout:create"
	CheckInOutRead   Permission = "checkinout:read"

	MaintenanceCreate Permission = "maintenance:create"
	MaintenanceRead   Permission = "maintenance:read"
	MaintenanceUpdate Permission = "maintenance:update"

	ReportsGenerate Permission = "reports:generate"
	ReportsView     Permission = "reports:view"

	UsersManage    Permission = "users:manage"
	SettingsModify Permission = "settings:modify"
)

func (p Permission) String() string {
	return string(p)
}

// Resource returns the part before the colon
func (p Permission) Resource() string {
	resource, _, _ := strings.Cut(string(p), ":")
	return resource
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		EquipmentCreate, EquipmentRead, EquipmentUpdate, EquipmentDelete,
		ChemicalCreate, ChemicalRead, ChemicalUpdate, ChemicalDelete,
		CheckInOutCreate, CheckInOutRead,
		MaintenanceCreate, MaintenanceRead, MaintenanceUpdate,
		ReportsGenerate, ReportsView,
		UsersManage, SettingsModify,
	},
	RoleTeacher: {
		EquipmentRead, EquipmentUpdate,
		ChemicalRead, ChemicalUpdate,
		CheckInOutCreate, CheckInOutRead,
		MaintenanceRead,
		ReportsView,
	},
	RoleLabAssistant: {
		EquipmentRead,
		ChemicalRead,
		CheckInOutCreate, CheckInOutRead,
		MaintenanceCreate, MaintenanceRead,
	},
	RoleStudent: {
		EquipmentRead,
		ChemicalRead,
		CheckInOutRead,
		MaintenanceRead,
		ReportsView,
	},
}

// PermissionsFor returns a copy of the role's permissions; unknown roles get none
func PermissionsFor(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}

// PermissionStrings is PermissionsFor flattened for storage on a profile
func PermissionStrings(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

// Universe is every permission granted to any role
func Universe() []Permission {
	seen := make(map[Permission]struct{})
	var all []Permission
	for _, role := range AllRoles {
		for _, p := range rolePermissions[role] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}
	return all
}

// Subject is anything carrying a captured permission list, typically a user profile
type Subject interface {
	GrantedPermissions() []string
}

// HasPermission reports whether subject holds exactly p. A nil subject is denied.
func HasPermission(subject Subject, p Permission) bool {
	if subject == nil {
		return false
	}
	return slices.Contains(subject.GrantedPermissions(), string(p))
}

// HasAny reports whether subject holds at least one of perms
func HasAny(subject Subject, perms ...Permission) bool {
	for _, p := range perms {
		if HasPermission(subject, p) {
			return true
		}
	}
	return false
}

// Require returns ErrForbidden unless subject holds p
func Require(subject Subject, p Permission) error {
	if !HasPermission(subject, p) {
		return ErrForbidden
	}
	return nil
}
