package checkInOutController

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"labventory/config"
	"labventory/internal/database"
	. "labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrItemUnavailable  = errors.New("item is not available for check-out")
	ErrPurposeRequired  = errors.New("purpose is required for check-out")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrFractionalAmount = errors.New("equipment quantity must be a whole number")
	ErrItemRequired     = errors.New("itemId is required")
)

type CheckInOutController struct {
	checkInOutRepo     repositories.CheckInOutRepository
	equipmentRepo      repositories.EquipmentRepository
	chemicalRepo       repositories.ChemicalRepository
	transactionService *services.TransactionService
	db                 database.DB
	Config             config.Config
	now                func() time.Time
	log                logger.Logger
}

type RecordRequest struct {
	ItemID   uuid.UUID       `json:"itemId"`
	ItemType ItemType        `json:"itemType"          validate:"required"`
	Action   CheckAction     `json:"action"            validate:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Purpose  *string         `json:"purpose,omitempty"`
}

// RecordResult is the log entry together with the item as it stands after the change
type RecordResult struct {
	Entry *CheckInOut   `json:"entry"`
	Item  InventoryItem `json:"item"`
}

type ActiveCheckout struct {
	ItemID   uuid.UUID       `json:"itemId"`
	Quantity decimal.Decimal `json:"quantity"`
}

type CheckInOutControllerInterface interface {
	Record(ctx context.Context, user *UserProfile, request *RecordRequest) (*RecordResult, error)
	List(ctx context.Context, filter repositories.CheckInOutFilter) ([]*CheckInOut, error)
	Active(ctx context.Context) ([]ActiveCheckout, error)
	ActiveCheckouts(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) CheckInOutControllerInterface {
	return &CheckInOutController{
		checkInOutRepo:     repos.CheckInOut,
		equipmentRepo:      repos.Equipment,
		chemicalRepo:       repos.Chemical,
		transactionService: services.Transaction,
		db:                 db,
		Config:             config,
		now:                time.Now,
		log:                logger.New("checkInOutController"),
	}
}

func (r *RecordRequest) validate() error {
	if r.ItemID == uuid.Nil {
		return ErrItemRequired
	}
	if _, err := ParseItemType(string(r.ItemType)); err != nil {
		return err
	}
	if !r.Action.Valid() {
		return ErrInvalidAction
	}
	if r.Quantity.LessThan(decimal.NewFromInt(1)) {
		return ErrInvalidQuantity
	}
	if r.ItemType == ItemTypeEquipment && !r.Quantity.IsInteger() {
		return ErrFractionalAmount
	}
	if r.Action == ActionCheckOut && (r.Purpose == nil || strings.TrimSpace(*r.Purpose) == "") {
		return ErrPurposeRequired
	}
	return nil
}

// Record writes the log entry and moves the inventory count in one
// transaction. Change events for both collections go out after commit.
func (c *CheckInOutController) Record(
	ctx context.Context,
	user *UserProfile,
	request *RecordRequest,
) (*RecordResult, error) {
	log := c.log.Function("Record")

	if err := request.validate(); err != nil {
		return nil, err
	}

	var result *RecordResult
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		item, err := c.resolve(txCtx, tx, ItemRef{Type: request.ItemType, ID: request.ItemID})
		if err != nil {
			return err
		}

		if err := c.applyQuantity(txCtx, tx, item, request.Action, request.Quantity); err != nil {
			return err
		}

		entry := &CheckInOut{
			ItemID:    item.ID(),
			ItemName:  item.Name(),
			ItemType:  item.Type,
			UserName:  user.Name(),
			UserEmail: user.Email,
			Action:    request.Action,
			Quantity:  request.Quantity,
			Timestamp: c.now().UTC(),
		}
		if request.Action == ActionCheckOut {
			purpose := strings.TrimSpace(*request.Purpose)
			entry.Purpose = &purpose
		}

		if err := c.checkInOutRepo.Create(txCtx, tx, entry); err != nil {
			return err
		}

		result = &RecordResult{Entry: entry, Item: item}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Recorded inventory movement",
		"itemID", result.Entry.ItemID,
		"action", result.Entry.Action,
		"quantity", result.Entry.Quantity.String(),
		"userID", user.ID,
	)
	return result, nil
}

func (c *CheckInOutController) resolve(
	ctx context.Context,
	tx *gorm.DB,
	ref ItemRef,
) (InventoryItem, error) {
	if ref.Type == ItemTypeEquipment {
		equipment, err := c.equipmentRepo.GetByID(ctx, tx, ref.ID)
		if err != nil {
			return InventoryItem{}, err
		}
		return EquipmentItem(equipment), nil
	}

	chemical, err := c.chemicalRepo.GetByID(ctx, tx, ref.ID)
	if err != nil {
		return InventoryItem{}, err
	}
	return ChemicalItem(chemical), nil
}

// applyQuantity moves the on-hand amount. Check-outs clamp at zero. Equipment
// goes In Use on every check-out and back to Available on every check-in.
func (c *CheckInOutController) applyQuantity(
	ctx context.Context,
	tx *gorm.DB,
	item InventoryItem,
	action CheckAction,
	quantity decimal.Decimal,
) error {
	if item.Type == ItemTypeChemical {
		current := item.Chemical.Quantity
		next := current.Add(quantity)
		if action == ActionCheckOut {
			next = decimal.Max(decimal.Zero, current.Sub(quantity))
		}

		updated, err := c.chemicalRepo.UpdateQuantity(ctx, tx, item.Chemical.ID, next)
		if err != nil {
			return err
		}
		*item.Chemical = *updated
		return nil
	}

	equipment := item.Equipment
	amount := int(quantity.IntPart())

	if action == ActionCheckOut {
		if equipment.Status != EquipmentStatusAvailable {
			return ErrItemUnavailable
		}

		remaining := max(equipment.Quantity-amount, 0)
		return c.equipmentRepo.UpdateStatusQuantity(ctx, tx, equipment, EquipmentStatusInUse, remaining)
	}

	return c.equipmentRepo.UpdateStatusQuantity(
		ctx,
		tx,
		equipment,
		EquipmentStatusAvailable,
		equipment.Quantity+amount,
	)
}

func (c *CheckInOutController) List(
	ctx context.Context,
	filter repositories.CheckInOutFilter,
) ([]*CheckInOut, error) {
	log := c.log.Function("List")

	if filter.Action != "" && !filter.Action.Valid() {
		return nil, ErrInvalidAction
	}
	if filter.ItemType != "" {
		if _, err := ParseItemType(string(filter.ItemType)); err != nil {
			return nil, err
		}
	}

	entries, err := c.checkInOutRepo.List(ctx, c.db.SQL, filter)
	if err != nil {
		return nil, log.Err("failed to list check-in/out entries", err)
	}
	return entries, nil
}

// Active lists items with a positive checked-out balance, largest first
func (c *CheckInOutController) Active(ctx context.Context) ([]ActiveCheckout, error) {
	counts, err := c.checkInOutRepo.ActiveCounts(ctx, c.db.SQL)
	if err != nil {
		return nil, err
	}

	active := make([]ActiveCheckout, 0, len(counts))
	for itemID, quantity := range counts {
		if quantity.IsPositive() {
			active = append(active, ActiveCheckout{ItemID: itemID, Quantity: quantity})
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if cmp := active[i].Quantity.Cmp(active[j].Quantity); cmp != 0 {
			return cmp > 0
		}
		return active[i].ItemID.String() < active[j].ItemID.String()
	})
	return active, nil
}

func (c *CheckInOutController) ActiveCheckouts(
	ctx context.Context,
	itemID uuid.UUID,
) (decimal.Decimal, error) {
	return c.checkInOutRepo.ActiveCount(ctx, c.db.SQL, itemID)
}

func (c *CheckInOutController) Delete(ctx context.Context, id uuid.UUID) error {
	return c.checkInOutRepo.Delete(ctx, c.db.SQL, id)
}
