package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CheckAction string

const (
	ActionCheckIn  CheckAction = "check-in"
	ActionCheckOut CheckAction = "check-out"
)

func (a CheckAction) Valid() bool {
	return a == ActionCheckIn || a == ActionCheckOut
}

// CheckInOut is an append-only transaction log entry
type CheckInOut struct {
	BaseUUIDModel
	ItemID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_check_in_outs_item" json:"itemId"`
	ItemName  string          `gorm:"type:text;not null"                            json:"itemName"`
	ItemType  ItemType        `gorm:"type:text;not null"                            json:"itemType"`
	UserName  string          `gorm:"type:text"                                     json:"userName"`
	UserEmail string          `gorm:"type:text;index:idx_check_in_outs_user_email"  json:"userEmail"`
	Action    CheckAction     `gorm:"type:text;not null;index:idx_check_in_outs_action" json:"action"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,3);not null"                   json:"quantity"`
	Purpose   *string         `gorm:"type:text"                                     json:"purpose,omitempty"`
	Timestamp time.Time       `gorm:"type:timestamp;not null;index:idx_check_in_outs_timestamp" json:"timestamp"`
}

func (c *CheckInOut) BeforeCreate(tx *gorm.DB) (err error) {
	if err := c.ensureID(); err != nil {
		return err
	}

	if c.ItemID == uuid.Nil || c.ItemName == "" {
		return gorm.ErrInvalidValue
	}
	if c.ItemType != ItemTypeEquipment && c.ItemType != ItemTypeChemical {
		return gorm.ErrInvalidValue
	}
	if !c.Action.Valid() {
		return gorm.ErrInvalidValue
	}
	if !c.Quantity.IsPositive() {
		return gorm.ErrInvalidValue
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	return nil
}

// Delta is the signed effect of the entry on the checked-out count
func (c *CheckInOut) Delta() decimal.Decimal {
	if c.Action == ActionCheckOut {
		return c.Quantity
	}
	return c.Quantity.Neg()
}
