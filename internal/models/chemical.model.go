package models

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type HazardLevel string

const (
	HazardLow    HazardLevel = "Low"
	HazardMedium HazardLevel = "Medium"
	HazardHigh   HazardLevel = "High"
)

var HazardLevels = []HazardLevel{HazardLow, HazardMedium, HazardHigh}

func (h HazardLevel) Valid() bool {
	for _, level := range HazardLevels {
		if h == level {
			return true
		}
	}
	return false
}

type Chemical struct {
	BaseUUIDModel
	Name        string          `gorm:"type:text;not null;index:idx_chemicals_name"     json:"name"`
	Code        *string         `gorm:"type:text;index:idx_chemicals_code"              json:"code,omitempty"`
	Formula     string          `gorm:"type:text"                                       json:"formula"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,3);not null"                     json:"quantity"`
	Unit        string          `gorm:"type:text"                                       json:"unit"`
	HazardLevel HazardLevel     `gorm:"type:text;not null;index:idx_chemicals_hazard"   json:"hazardLevel"`
	Location    string          `gorm:"type:text"                                       json:"location"`
	ExpiryDate  *time.Time      `gorm:"type:timestamp;index:idx_chemicals_expiry_date"  json:"expiryDate,omitempty"`
	Supplier    *string         `gorm:"type:text"                                       json:"supplier,omitempty"`
}

func (c *Chemical) BeforeCreate(tx *gorm.DB) (err error) {
	if err := c.ensureID(); err != nil {
		return err
	}

	c.Name = strings.TrimSpace(c.Name)
	c.Formula = strings.TrimSpace(c.Formula)
	if c.Name == "" {
		return gorm.ErrInvalidValue
	}
	if c.HazardLevel == "" {
		c.HazardLevel = HazardLow
	}
	if !c.HazardLevel.Valid() {
		return gorm.ErrInvalidValue
	}
	if c.Quantity.IsNegative() {
		return gorm.ErrInvalidValue
	}
	return nil
}

// DaysUntilExpiry rounds up to whole days; ok is false when no expiry is set
func (c *Chemical) DaysUntilExpiry(now time.Time) (days int, ok bool) {
	if c.ExpiryDate == nil {
		return 0, false
	}
	return int(math.Ceil(c.ExpiryDate.Sub(now).Hours() / 24)), true
}

// ExpiresWithin is true for chemicals expiring in (0, window] days
func (c *Chemical) ExpiresWithin(now time.Time, windowDays int) bool {
	days, ok := c.DaysUntilExpiry(now)
	return ok && days > 0 && days <= windowDays
}

func (c *Chemical) Expired(now time.Time) bool {
	days, ok := c.DaysUntilExpiry(now)
	return ok && days <= 0
}

func (c *Chemical) LowStock(threshold decimal.Decimal) bool {
	return c.Quantity.LessThan(threshold)
}
