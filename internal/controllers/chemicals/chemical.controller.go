package chemicalController

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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ChemicalController struct {
	chemicalRepo       repositories.ChemicalRepository
	duplicateService   *services.DuplicateService
	transactionService *services.TransactionService
	db                 database.DB
	Config             config.Config
	now                func() time.Time
	log                logger.Logger
}

type ChemicalRequest struct {
	Name        string          `json:"name"                 validate:"notblank"`
	Code        *string         `json:"code,omitempty"`
	Formula     string          `json:"formula"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	HazardLevel HazardLevel     `json:"hazardLevel"`
	Location    string          `json:"location"`
	ExpiryDate  *time.Time      `json:"expiryDate,omitempty"`
	Supplier    *string         `json:"supplier,omitempty"`
}

type CreateChemicalRequest struct {
	ChemicalRequest
	Resolution services.Resolution `json:"resolution,omitempty"`
}

type UpdateChemicalRequest struct {
	Name        *string          `json:"name,omitempty"        validate:"omitempty,notblank"`
	Code        *string          `json:"code,omitempty"`
	Formula     *string          `json:"formula,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	HazardLevel *HazardLevel     `json:"hazardLevel,omitempty"`
	Location    *string          `json:"location,omitempty"`
	ExpiryDate  *time.Time       `json:"expiryDate,omitempty"`
	Supplier    *string          `json:"supplier,omitempty"`
}

type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type CheckDuplicateRequest struct {
	Name      string     `json:"name"                validate:"notblank"`
	Formula   string     `json:"formula"`
	ExcludeID *uuid.UUID `json:"excludeId,omitempty"`
}

type ImportRequest struct {
	Items       []ChemicalRequest `json:"items"       validate:"required,min=1,dive"`
	OnDuplicate string            `json:"onDuplicate"`
}

type WriteResponse struct {
	Outcome  services.WriteOutcome `json:"outcome"`
	Chemical *Chemical             `json:"chemical,omitempty"`
}

type ChemicalControllerInterface interface {
	List(ctx context.Context, filter repositories.ChemicalFilter, search string) ([]*Chemical, error)
	Get(ctx context.Context, id uuid.UUID) (*Chemical, error)
	Create(ctx context.Context, request *CreateChemicalRequest) (*WriteResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *UpdateChemicalRequest) (*Chemical, error)
	SetQuantity(ctx context.Context, id uuid.UUID, request *QuantityRequest) (*Chemical, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context) ([]*Chemical, error)
	Expiring(ctx context.Context) ([]*Chemical, error)
	CheckDuplicate(ctx context.Context, request *CheckDuplicateRequest) (services.DuplicateResult, error)
	Import(ctx context.Context, request *ImportRequest) (services.ImportResult, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) ChemicalControllerInterface {
	return &ChemicalController{
		chemicalRepo:       repos.Chemical,
		duplicateService:   services.Duplicate,
		transactionService: services.Transaction,
		db:                 db,
		Config:             config,
		now:                time.Now,
		log:                logger.New("chemicalController"),
	}
}

func (r *ChemicalRequest) toModel() *Chemical {
	return &Chemical{
		Name:        strings.TrimSpace(r.Name),
		Code:        r.Code,
		Formula:     strings.TrimSpace(r.Formula),
		Quantity:    r.Quantity,
		Unit:        strings.TrimSpace(r.Unit),
		HazardLevel: r.HazardLevel,
		Location:    strings.TrimSpace(r.Location),
		ExpiryDate:  r.ExpiryDate,
		Supplier:    r.Supplier,
	}
}

func (r *ChemicalRequest) check() error {
	if r.Quantity.IsNegative() {
		return ErrNegativeQuantity
	}
	if r.HazardLevel != "" && !r.HazardLevel.Valid() {
		return ErrInvalidHazardLevel
	}
	return nil
}

// List searches name and formula when search is set, otherwise applies filter
func (c *ChemicalController) List(
	ctx context.Context,
	filter repositories.ChemicalFilter,
	search string,
) ([]*Chemical, error) {
	log := c.log.Function("List")

	if filter.HazardLevel != "" && !filter.HazardLevel.Valid() {
		return nil, ErrInvalidHazardLevel
	}

	var chemicals []*Chemical
	var err error
	if strings.TrimSpace(search) != "" {
		chemicals, err = c.chemicalRepo.Search(ctx, c.db.SQL, search)
	} else {
		chemicals, err = c.chemicalRepo.List(ctx, c.db.SQL, filter)
	}
	if err != nil {
		return nil, log.Err("failed to list chemicals", err)
	}
	return chemicals, nil
}

func (c *ChemicalController) Get(ctx context.Context, id uuid.UUID) (*Chemical, error) {
	return c.chemicalRepo.GetByID(ctx, c.db.SQL, id)
}

func (c *ChemicalController) Create(
	ctx context.Context,
	request *CreateChemicalRequest,
) (*WriteResponse, error) {
	log := c.log.Function("Create")

	if _, err := services.ParseResolution(string(request.Resolution)); err != nil {
		return nil, err
	}
	if err := request.check(); err != nil {
		return nil, err
	}

	chemical := request.toModel()
	response := &WriteResponse{}
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		check, err := c.duplicateService.CheckChemical(txCtx, chemical.Name, chemical.Formula, nil)
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
			updated, err := c.chemicalRepo.Update(
				txCtx,
				tx,
				*check.ExistingID,
				services.ChemicalFields(chemical),
			)
			if err != nil {
				return err
			}
			response.Chemical = updated
		case services.OutcomeCreated:
			if err := c.chemicalRepo.Create(txCtx, tx, chemical); err != nil {
				return err
			}
			response.Chemical = chemical
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Chemical write finished", "outcome", response.Outcome, "name", chemical.Name)
	return response, nil
}

func (c *ChemicalController) Update(
	ctx context.Context,
	id uuid.UUID,
	request *UpdateChemicalRequest,
) (*Chemical, error) {
	updates := map[string]any{}
	if request.Name != nil {
		updates["name"] = strings.TrimSpace(*request.Name)
	}
	if request.Code != nil {
		updates["code"] = strings.TrimSpace(*request.Code)
	}
	if request.Formula != nil {
		updates["formula"] = strings.TrimSpace(*request.Formula)
	}
	if request.Quantity != nil {
		if request.Quantity.IsNegative() {
			return nil, ErrNegativeQuantity
		}
		updates["quantity"] = *request.Quantity
	}
	if request.Unit != nil {
		updates["unit"] = strings.TrimSpace(*request.Unit)
	}
	if request.HazardLevel != nil {
		if !request.HazardLevel.Valid() {
			return nil, ErrInvalidHazardLevel
		}
		updates["hazard_level"] = *request.HazardLevel
	}
	if request.Location != nil {
		updates["location"] = strings.TrimSpace(*request.Location)
	}
	if request.ExpiryDate != nil {
		updates["expiry_date"] = *request.ExpiryDate
	}
	if request.Supplier != nil {
		updates["supplier"] = strings.TrimSpace(*request.Supplier)
	}
	if len(updates) == 0 {
		return c.Get(ctx, id)
	}

	var chemical *Chemical
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		if request.Name != nil || request.Formula != nil {
			current, err := c.chemicalRepo.GetByID(txCtx, tx, id)
			if err != nil {
				return err
			}
			name, formula := current.Name, current.Formula
			if request.Name != nil {
				name = *request.Name
			}
			if request.Formula != nil {
				formula = *request.Formula
			}

			check, err := c.duplicateService.CheckChemical(txCtx, name, formula, &id)
			if err != nil {
				return err
			}
			if check.IsDuplicate {
				return &services.DuplicateError{Result: check}
			}
		}

		var err error
		chemical, err = c.chemicalRepo.Update(txCtx, tx, id, updates)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chemical, nil
}

func (c *ChemicalController) SetQuantity(
	ctx context.Context,
	id uuid.UUID,
	request *QuantityRequest,
) (*Chemical, error) {
	if request.Quantity.IsNegative() {
		return nil, ErrNegativeQuantity
	}
	return c.chemicalRepo.UpdateQuantity(ctx, c.db.SQL, id, request.Quantity)
}

func (c *ChemicalController) Delete(ctx context.Context, id uuid.UUID) error {
	return c.chemicalRepo.Delete(ctx, c.db.SQL, id)
}

func (c *ChemicalController) LowStock(ctx context.Context) ([]*Chemical, error) {
	threshold := decimal.NewFromFloat(c.Config.LowStockThreshold)
	return c.chemicalRepo.LowStock(ctx, c.db.SQL, threshold)
}

func (c *ChemicalController) Expiring(ctx context.Context) ([]*Chemical, error) {
	return c.chemicalRepo.Expiring(ctx, c.db.SQL, c.now(), c.Config.ExpiryWindowDays)
}

func (c *ChemicalController) CheckDuplicate(
	ctx context.Context,
	request *CheckDuplicateRequest,
) (services.DuplicateResult, error) {
	return c.duplicateService.CheckChemical(ctx, request.Name, request.Formula, request.ExcludeID)
}

func (c *ChemicalController) Import(
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
			Type:     ItemTypeChemical,
			Chemical: request.Items[i].toModel(),
		})
	}

	return c.duplicateService.Import(ctx, items, strategy), nil
}
