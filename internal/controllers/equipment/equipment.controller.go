package equipmentController

import (
	"context"
	"strings"
	"time"

	"labventory/config"
	"labventory/internal/database"
	. "labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/internal/services"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EquipmentController struct {
	equipmentRepo      repositories.EquipmentRepository
	duplicateService   *services.DuplicateService
	transactionService *services.TransactionService
	db                 database.DB
	Config             config.Config
	log                logger.Logger
}

type EquipmentRequest struct {
	Name            string          `json:"name"                      validate:"notblank"`
	Code            *string         `json:"code,omitempty"`
	Category        string          `json:"category"`
	Quantity        int             `json:"quantity"                  validate:"min=0"`
	Status          EquipmentStatus `json:"status"`
	Location        string          `json:"location"`
	Condition       string          `json:"condition"`
	HideFromReports bool            `json:"hideFromReports"`
	PurchaseDate    *time.Time      `json:"purchaseDate,omitempty"`
	LastMaintenance *time.Time      `json:"lastMaintenance,omitempty"`
}

type CreateEquipmentRequest struct {
	EquipmentRequest
	Resolution services.Resolution `json:"resolution,omitempty"`
}

type UpdateEquipmentRequest struct {
	Name            *string          `json:"name,omitempty"            validate:"omitempty,notblank"`
	Code            *string          `json:"code,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Quantity        *int             `json:"quantity,omitempty"        validate:"omitempty,min=0"`
	Status          *EquipmentStatus `json:"status,omitempty"`
	Location        *string          `json:"location,omitempty"`
	Condition       *string          `json:"condition,omitempty"`
	PurchaseDate    *time.Time       `json:"purchaseDate,omitempty"`
	LastMaintenance *time.Time       `json:"lastMaintenance,omitempty"`
}

type CheckDuplicateRequest struct {
	Name      string     `json:"name"                validate:"notblank"`
	ExcludeID *uuid.UUID `json:"excludeId,omitempty"`
}

type ImportRequest struct {
	Items       []EquipmentRequest `json:"items"       validate:"required,min=1,dive"`
	OnDuplicate string             `json:"onDuplicate"`
}

type WriteResponse struct {
	Outcome   services.WriteOutcome `json:"outcome"`
	Equipment *Equipment            `json:"equipment,omitempty"`
}

type EquipmentControllerInterface interface {
	List(ctx context.Context, filter repositories.EquipmentFilter) ([]*Equipment, error)
	Get(ctx context.Context, id uuid.UUID) (*Equipment, error)
	Create(ctx context.Context, request *CreateEquipmentRequest) (*WriteResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *UpdateEquipmentRequest) (*Equipment, error)
	SetVisibility(ctx context.Context, id uuid.UUID, hidden bool) (*Equipment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CheckDuplicate(ctx context.Context, request *CheckDuplicateRequest) (services.DuplicateResult, error)
	Import(ctx context.Context, request *ImportRequest) (services.ImportResult, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) EquipmentControllerInterface {
	return &EquipmentController{
		equipmentRepo:      repos.Equipment,
		duplicateService:   services.Duplicate,
		transactionService: services.Transaction,
		db:                 db,
		Config:             config,
		log:                logger.New("equipmentController"),
	}
}

func (r *EquipmentRequest) toModel() *Equipment {
	equipment := &Equipment{
		Name:            strings.TrimSpace(r.Name),
		Code:            r.Code,
		Category:        strings.TrimSpace(r.Category),
		Quantity:        r.Quantity,
		Status:          r.Status,
		Location:        strings.TrimSpace(r.Location),
		Condition:       strings.TrimSpace(r.Condition),
		HideFromReports: r.HideFromReports,
		PurchaseDate:    r.PurchaseDate,
		LastMaintenance: r.LastMaintenance,
	}
	if equipment.Status == "" {
		equipment.Status = EquipmentStatusAvailable
	}
	return equipment
}

func (c *EquipmentController) List(
	ctx context.Context,
	filter repositories.EquipmentFilter,
) ([]*Equipment, error) {
	log := c.log.Function("List")

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	equipment, err := c.equipmentRepo.List(ctx, c.db.SQL, filter)
	if err != nil {
		return nil, log.Err("failed to list equipment", err)
	}
	return equipment, nil
}

func (c *EquipmentController) Get(ctx context.Context, id uuid.UUID) (*Equipment, error) {
	return c.equipmentRepo.GetByID(ctx, c.db.SQL, id)
}

// Create runs the duplicate check and the write in one transaction so a
// concurrent insert cannot slip between them
func (c *EquipmentController) Create(
	ctx context.Context,
	request *CreateEquipmentRequest,
) (*WriteResponse, error) {
	log := c.log.Function("Create")

	if _, err := services.ParseResolution(string(request.Resolution)); err != nil {
		return nil, err
	}

	equipment := request.toModel()
	if !equipment.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	response := &WriteResponse{}
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		check, err := c.duplicateService.CheckEquipment(txCtx, equipment.Name, nil)
		if err != nil {
			return err
		}

		outcome, err := services.Decide(check, request.Resolution)
		if err != nil {
			return err
		}
		response.Outcome = outcome

		switch outcome {
		case services.OutcomeUpdated:
			updated, err := c.equipmentRepo.Update(
				txCtx,
				tx,
				*check.ExistingID,
				services.EquipmentFields(equipment),
			)
			if err != nil {
				return err
			}
			response.Equipment = updated
		case services.OutcomeCreated:
			if err := c.equipmentRepo.Create(txCtx, tx, equipment); err != nil {
				return err
			}
			response.Equipment = equipment
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Equipment write finished", "outcome", response.Outcome, "name", equipment.Name)
	return response, nil
}

func (c *EquipmentController) Update(
	ctx context.Context,
	id uuid.UUID,
	request *UpdateEquipmentRequest,
) (*Equipment, error) {
	updates := map[string]any{}
	if request.Name != nil {
		updates["name"] = strings.TrimSpace(*request.Name)
	}
	if request.Code != nil {
		updates["code"] = strings.TrimSpace(*request.Code)
	}
	if request.Category != nil {
		updates["category"] = strings.TrimSpace(*request.Category)
	}
	if request.Quantity != nil {
		updates["quantity"] = *request.Quantity
	}
	if request.Status != nil {
		if !request.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		updates["status"] = *request.Status
	}
	if request.Location != nil {
		updates["location"] = strings.TrimSpace(*request.Location)
	}
	if request.Condition != nil {
		updates["condition"] = strings.TrimSpace(*request.Condition)
	}
	if request.PurchaseDate != nil {
		updates["purchase_date"] = *request.PurchaseDate
	}
	if request.LastMaintenance != nil {
		updates["last_maintenance"] = *request.LastMaintenance
	}
	if len(updates) == 0 {
		return c.Get(ctx, id)
	}

	var equipment *Equipment
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if request.Name != nil {
			check, err := c.duplicateService.CheckEquipment(txCtx, *request.Name, &id)
			if err != nil {
				return err
			}
			if check.IsDuplicate {
				return &services.DuplicateError{Result: check}
			}
		}

		var err error
		equipment, err = c.equipmentRepo.Update(txCtx, tx, id, updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	return equipment, nil
}

func (c *EquipmentController) SetVisibility(
	ctx context.Context,
	id uuid.UUID,
	hidden bool,
) (*Equipment, error) {
	return c.equipmentRepo.SetHidden(ctx, c.db.SQL, id, hidden)
}

func (c *EquipmentController) Delete(ctx context.Context, id uuid.UUID) error {
	return c.equipmentRepo.Delete(ctx, c.db.SQL, id)
}

func (c *EquipmentController) CheckDuplicate(
	ctx context.Context,
	request *CheckDuplicateRequest,
) (services.DuplicateResult, error) {
	return c.duplicateService.CheckEquipment(ctx, request.Name, request.ExcludeID)
}

func (c *EquipmentController) Import(
	ctx context.Context,
	request *ImportRequest,
) (services.ImportResult, error) {
	strategy, err := services.ParseImportStrategy(request.OnDuplicate)
	if err != nil {
		return services.ImportResult{}, err
	}

	items := make([]services.ImportItem, 0, len(request.Items))
	for i := range request.Items {
		items = append(items, services.ImportItem{
			Type:      ItemTypeEquipment,
			Equipment: request.Items[i].toModel(),
		})
	}

	return c.duplicateService.Import(ctx, items, strategy), nil
}
