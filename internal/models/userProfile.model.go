package models

import (
	"strings"

	"labventory/internal/authz"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserProfile holds the role and the permission snapshot captured when the
// role was assigned. ID is the uid issued at sign-up.
type UserProfile struct {
	BaseUUIDModel
	Email       string                      `gorm:"type:text;not null;uniqueIndex:idx_user_profiles_email" json:"email"`
	DisplayName *string                     `gorm:"type:text"                                          json:"displayName,omitempty"`
	Role        authz.Role                  `gorm:"type:text;not null;index:idx_user_profiles_role"    json:"role"`
	Permissions datatypes.JSONSlice[string] `gorm:"type:json"                                          json:"permissions"`
}

// NewUserProfile builds a profile whose permissions are expanded from role
func NewUserProfile(id uuid.UUID, email string, role authz.Role) *UserProfile {
	profile := &UserProfile{
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
	profile.ID = id
	profile.ApplyRole(role)
	return profile
}

func (u *UserProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if err := u.ensureID(); err != nil {
		return err
	}
	if u.Email == "" || !u.Role.Valid() {
		return gorm.ErrInvalidValue
	}
	return nil
}

// ApplyRole replaces the role and recomputes the permission snapshot
func (u *UserProfile) ApplyRole(role authz.Role) {
	u.Role = role
	u.Permissions = datatypes.JSONSlice[string](authz.PermissionStrings(role))
}

func (u *UserProfile) GrantedPermissions() []string {
	if u == nil {
		return nil
	}
	return u.Permissions
}

func (u *UserProfile) Can(p authz.Permission) bool {
	return authz.HasPermission(u, p)
}

// Name is the display name, falling back to the email address
func (u *UserProfile) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Email
}
