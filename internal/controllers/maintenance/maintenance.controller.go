package maintenanceController

import (
	"context"
	"errors"
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

type MaintenanceController struct {
	maintenanceRepo    repositories.MaintenanceRepository
	equipmentRepo      repositories.EquipmentRepository
	duplicateService   *services.DuplicateService
	transactionService *services.TransactionService
	db                 database.DB
	Config             config.Config
	now                func() time.Time
	log                logger.Logger
}

type CreateMaintenanceRequest struct {
	EquipmentID   uuid.UUID           `json:"equipmentId"`
	Type          string              `json:"type"                  validate:"notblank"`
	ScheduledDate time.Time           `json:"scheduledDate"         validate:"required"`
	Status        MaintenanceStatus   `json:"status,omitempty"`
	Priority      Priority            `json:"priority,omitempty"`
	AssignedTo    string              `json:"assignedTo"`
	Notes         *string             `json:"notes,omitempty"`
	Description   *string             `json:"description,omitempty"`
	Cost          *decimal.Decimal    `json:"cost,omitempty"`
	Resolution    services.Resolution `json:"resolution,omitempty"`
}

type UpdateMaintenanceRequest struct {
	Type          *string            `json:"type,omitempty"          validate:"omitempty,notblank"`
	ScheduledDate *time.Time         `json:"scheduledDate,omitempty"`
	Status        *MaintenanceStatus `json:"status,omitempty"`
	Priority      *Priority          `json:"priority,omitempty"`
	AssignedTo    *string            `json:"assignedTo,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Description   *string            `json:"description,omitempty"`
	CompletedDate *time.Time         `json:"completedDate,omitempty"`
	Cost          *decimal.Decimal   `json:"cost,omitempty"`
}

type CheckDuplicateRequest struct {
	EquipmentID   uuid.UUID  `json:"equipmentId"`
	Type          string     `json:"type"                validate:"notblank"`
	ScheduledDate time.Time  `json:"scheduledDate"       validate:"required"`
	ExcludeID     *uuid.UUID `json:"excludeId,omitempty"`
}

type WriteResponse struct {
	Outcome services.WriteOutcome `json:"outcome"`
	Task    *MaintenanceTask      `json:"task,omitempty"`
}

type MaintenanceControllerInterface interface {
	List(ctx context.Context, filter repositories.MaintenanceFilter) ([]*MaintenanceTask, error)
	Overdue(ctx context.Context) ([]*MaintenanceTask, error)
	Create(ctx context.Context, request *CreateMaintenanceRequest) (*WriteResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *UpdateMaintenanceRequest) (*MaintenanceTask, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CheckDuplicate(ctx context.Context, request *CheckDuplicateRequest) (services.DuplicateResult, error)
}

func New(
	repos repositories.Repository,
	services services.Service,
	config config.Config,
	db database.DB,
) MaintenanceControllerInterface {
	return &MaintenanceController{
		maintenanceRepo:    repos.Maintenance,
		equipmentRepo:      repos.Equipment,
		duplicateService:   services.Duplicate,
		transactionService: services.Transaction,
		db:                 db,
		Config:             config,
		now:                time.Now,
		log:                logger.New("maintenanceController"),
	}
}

func (c *MaintenanceController) List(
	ctx context.Context,
	filter repositories.MaintenanceFilter,
) ([]*MaintenanceTask, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return c.maintenanceRepo.List(ctx, c.db.SQL, filter)
}

func (c *MaintenanceController) Overdue(ctx context.Context) ([]*MaintenanceTask, error) {
	return c.maintenanceRepo.Overdue(ctx, c.db.SQL, c.now())
}

func (c *MaintenanceController) Create(
	ctx context.Context,
	request *CreateMaintenanceRequest,
) (*WriteResponse, error) {
	log := c.log.Function("Create")

	if _, err := services.ParseResolution(string(request.Resolution)); err != nil {
		return nil, err
	}
	if request.Status != "" && !request.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if request.Priority != "" && !request.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task := &MaintenanceTask{
		EquipmentID:   request.EquipmentID,
		Type:          strings.TrimSpace(request.Type),
		ScheduledDate: request.ScheduledDate,
		Status:        request.Status,
		Priority:      request.Priority,
		AssignedTo:    strings.TrimSpace(request.AssignedTo),
		Notes:         request.Notes,
		Description:   request.Description,
		Cost:          request.Cost,
	}

	response := &WriteResponse{}
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		equipment, err := c.equipmentRepo.GetByID(txCtx, tx, request.EquipmentID)
		if err != nil {
			return err
		}
		task.EquipmentName = equipment.Name

		check, err := c.duplicateService.CheckMaintenance(
			txCtx,
			task.EquipmentID,
			task.Type,
			task.ScheduledDate,
			nil,
		)
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
			updated, err := c.maintenanceRepo.Update(
				txCtx,
				tx,
				*check.ExistingID,
				services.MaintenanceFields(task),
			)
			if err != nil {
				return err
			}
			response.Task = updated
		case services.OutcomeCreated:
			if err := c.maintenanceRepo.Create(txCtx, tx, task); err != nil {
				return err
			}
			response.Task = task
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Maintenance write finished", "outcome", response.Outcome, "equipmentID", task.EquipmentID)
	return response, nil
}

// Update applies a partial change. Completing a task stamps its completion
// date and the equipment's last maintenance date.
func (c *MaintenanceController) Update(
	ctx context.Context,
	id uuid.UUID,
	request *UpdateMaintenanceRequest,
) (*MaintenanceTask, error) {
	updates := map[string]any{}
	if request.Type != nil {
		updates["type"] = strings.TrimSpace(*request.Type)
	}
	if request.ScheduledDate != nil {
		updates["scheduled_date"] = *request.ScheduledDate
	}
	if request.Status != nil {
		if !request.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		updates["status"] = *request.Status
	}
	if request.Priority != nil {
		if !request.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		updates["priority"] = *request.Priority
	}
	if request.AssignedTo != nil {
		updates["assigned_to"] = strings.TrimSpace(*request.AssignedTo)
	}
	if request.Notes != nil {
		updates["notes"] = *request.Notes
	}
	if request.Description != nil {
		updates["description"] = *request.Description
	}
	if request.CompletedDate != nil {
		updates["completed_date"] = *request.CompletedDate
	}
	if request.Cost != nil {
		if request.Cost.IsNegative() {
			return nil, ErrNegativeQuantity
		}
		updates["cost"] = *request.Cost
	}

	completing := request.Status != nil && *request.Status == MaintenanceCompleted
	if completing && request.CompletedDate == nil {
		updates["completed_date"] = c.now().UTC()
	}

	var task *MaintenanceTask
	err := c.transactionService.Execute(ctx, func(txCtx context.Context, tx *gorm.DB) error {
		current, err := c.maintenanceRepo.GetByID(txCtx, tx, id)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			task = current
			return nil
		}

		if request.Type != nil || request.ScheduledDate != nil {
			taskType, scheduled := current.Type, current.ScheduledDate
			if request.Type != nil {
				taskType = *request.Type
			}
			if request.ScheduledDate != nil {
				scheduled = *request.ScheduledDate
			}

			check, err := c.duplicateService.CheckMaintenance(txCtx, current.EquipmentID, taskType, scheduled, &id)
			if err != nil {
				return err
			}
			if check.IsDuplicate {
				return &services.DuplicateError{Result: check}
			}
		}

		task, err = c.maintenanceRepo.Update(txCtx, tx, id, updates)
		if err != nil {
			return err
		}

		if completing && task.CompletedDate != nil {
			_, err := c.equipmentRepo.Update(txCtx, tx, task.EquipmentID, map[string]any{
				"last_maintenance": *task.CompletedDate,
			})
			// the equipment may have been removed since the task was scheduled
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (c *MaintenanceController) Delete(ctx context.Context, id uuid.UUID) error {
	return c.maintenanceRepo.Delete(ctx, c.db.SQL, id)
}

func (c *MaintenanceController) CheckDuplicate(
	ctx context.Context,
	request *CheckDuplicateRequest,
) (services.DuplicateResult, error) {
	return c.duplicateService.CheckMaintenance(
		ctx,
		request.EquipmentID,
		request.Type,
		request.ScheduledDate,
		request.ExcludeID,
	)
}
