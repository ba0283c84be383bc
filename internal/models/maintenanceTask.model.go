package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "Scheduled"
	MaintenancePending    MaintenanceStatus = "Pending"
	MaintenanceInProgress MaintenanceStatus = "In Progress"
	MaintenanceCompleted  MaintenanceStatus = "Completed"
)

var MaintenanceStatuses = []MaintenanceStatus{
	MaintenanceScheduled,
	MaintenancePending,
	MaintenanceInProgress,
	MaintenanceCompleted,
}

func (s MaintenanceStatus) Valid() bool {
	for _, status := range MaintenanceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type MaintenanceTask struct {
	BaseUUIDModel
	EquipmentID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_maintenance_tasks_equipment" json:"equipmentId"`
	EquipmentName string            `gorm:"type:text;not null"                                   json:"equipmentName"`
	Type          string            `gorm:"type:text;not null"                                   json:"type"`
	ScheduledDate time.Time         `gorm:"type:timestamp;not null;index:idx_maintenance_tasks_scheduled" json:"scheduledDate"`
	Status        MaintenanceStatus `gorm:"type:text;not null;index:idx_maintenance_tasks_status" json:"status"`
	Priority      Priority          `gorm:"type:text;not null"                                   json:"priority"`
	AssignedTo    string            `gorm:"type:text"                                            json:"assignedTo"`
	Notes         *string           `gorm:"type:text"                                            json:"notes,omitempty"`
	Description   *string           `gorm:"type:text"                                            json:"description,omitempty"`
	CompletedDate *time.Time        `gorm:"type:timestamp"                                       json:"completedDate,omitempty"`
	Cost          *decimal.Decimal  `gorm:"type:decimal(10,2)"                                   json:"cost,omitempty"`
}

func (m *MaintenanceTask) BeforeCreate(tx *gorm.DB) (err error) {
	if err := m.ensureID(); err != nil {
		return err
	}

	m.Type = strings.TrimSpace(m.Type)
	if m.EquipmentID == uuid.Nil || m.Type == "" || m.ScheduledDate.IsZero() {
		return gorm.ErrInvalidValue
	}
	if m.Status == "" {
		m.Status = MaintenanceScheduled
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if !m.Status.Valid() || !m.Priority.Valid() {
		return gorm.ErrInvalidValue
	}
	return nil
}

// SameDay compares calendar dates in UTC, ignoring the time of day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (m *MaintenanceTask) Overdue(now time.Time) bool {
	return m.Status != MaintenanceCompleted && m.ScheduledDate.Before(now)
}
