package models

import (
	"strings"

	"gorm.io/gorm"
)

// UserCredential stores the sign-in secret. Its ID is shared with the UserProfile.
type UserCredential struct {
	BaseUUIDModel
	Email        string `gorm:"type:text;not null;uniqueIndex:idx_user_credentials_email" json:"email"`
	PasswordHash string `gorm:"type:text;not null"                                     json:"-"`
}

func (c *UserCredential) BeforeCreate(tx *gorm.DB) (err error) {
	if err := c.ensureID(); err != nil {
		return err
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	if c.Email == "" || c.PasswordHash == "" {
		return gorm.ErrInvalidValue
	}
	return nil
}
