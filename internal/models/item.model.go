package models

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidItemType    = errors.New("invalid item type")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidHazardLevel = errors.New("invalid hazard level")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrNegativeQuantity   = errors.New("quantity cannot be negative")
	ErrInvalidAction      = errors.New("invalid check-in/out action")
)

type ItemType string

const (
	ItemTypeEquipment ItemType = "equipment"
	ItemTypeChemical  ItemType = "chemical"
)

func ParseItemType(s string) (ItemType, error) {
	switch ItemType(s) {
	case ItemTypeEquipment, ItemTypeChemical:
		return ItemType(s), nil
	}
	return "", ErrInvalidItemType
}

// ItemRef points at either an equipment or a chemical record
type ItemRef struct {
	Type ItemType  `json:"type"`
	ID   uuid.UUID `json:"id"`
}

// InventoryItem is the resolved form of an ItemRef. Exactly one of Equipment
// or Chemical is set, matching Type.
type InventoryItem struct {
	Type      ItemType   `json:"type"`
	Equipment *Equipment `json:"equipment,omitempty"`
	Chemical  *Chemical  `json:"chemical,omitempty"`
}

func EquipmentItem(e *Equipment) InventoryItem {
	return InventoryItem{Type: ItemTypeEquipment, Equipment: e}
}

func ChemicalItem(c *Chemical) InventoryItem {
	return InventoryItem{Type: ItemTypeChemical, Chemical: c}
}

func (i InventoryItem) ID() uuid.UUID {
	switch i.Type {
	case ItemTypeEquipment:
		return i.Equipment.ID
	case ItemTypeChemical:
		return i.Chemical.ID
	}
	return uuid.Nil
}

func (i InventoryItem) Name() string {
	switch i.Type {
	case ItemTypeEquipment:
		return i.Equipment.Name
	case ItemTypeChemical:
		return i.Chemical.Name
	}
	return ""
}

func (i InventoryItem) Code() string {
	var code *string
	switch i.Type {
	case ItemTypeEquipment:
		code = i.Equipment.Code
	case ItemTypeChemical:
		code = i.Chemical.Code
	}
	if code == nil {
		return ""
	}
	return *code
}

func (i InventoryItem) Ref() ItemRef {
	return ItemRef{Type: i.Type, ID: i.ID()}
}
