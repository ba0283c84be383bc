package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type EquipmentStatus string

const (
	EquipmentStatusAvailable   EquipmentStatus = "Available"
	EquipmentStatusInUse       EquipmentStatus = "In Use"
	EquipmentStatusMaintenance EquipmentStatus = "Maintenance"
	EquipmentStatusRetired     EquipmentStatus = "Retired"
)

var EquipmentStatuses = []EquipmentStatus{
	EquipmentStatusAvailable,
	EquipmentStatusInUse,
	EquipmentStatusMaintenance,
	EquipmentStatusRetired,
}

func (s EquipmentStatus) Valid() bool {
	for _, status := range EquipmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Equipment struct {
	BaseUUIDModel
	Name            string          `gorm:"type:text;not null;index:idx_equipment_name"         json:"name"`
	Code            *string         `gorm:"type:text;index:idx_equipment_code"                  json:"code,omitempty"`
	Category        string          `gorm:"type:text;index:idx_equipment_category"              json:"category"`
	Quantity        int             `gorm:"not null;default:0"                                  json:"quantity"`
	Status          EquipmentStatus `gorm:"type:text;not null;index:idx_equipment_status"       json:"status"`
	Location        string          `gorm:"type:text"                                           json:"location"`
	Condition       string          `gorm:"type:text"                                           json:"condition"`
	HideFromReports bool            `gorm:"not null;default:false"                              json:"hideFromReports"`
	PurchaseDate    *time.Time      `gorm:"type:timestamp"                                      json:"purchaseDate,omitempty"`
	LastMaintenance *time.Time      `gorm:"type:timestamp"                                      json:"lastMaintenance,omitempty"`
}

func (Equipment) TableName() string { return "equipment" }

func (e *Equipment) BeforeCreate(tx *gorm.DB) (err error) {
	if err := e.ensureID(); err != nil {
		return err
	}

	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return gorm.ErrInvalidValue
	}
	if e.Status == "" {
		e.Status = EquipmentStatusAvailable
	}
	if !e.Status.Valid() {
		return gorm.ErrInvalidValue
	}
	if e.Quantity < 0 {
		return gorm.ErrInvalidValue
	}
	return nil
}
