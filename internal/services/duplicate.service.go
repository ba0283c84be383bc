package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"labventory/config"
	appContext "labventory/internal/context"
	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrDuplicate          = errors.New("duplicate record")
	ErrInvalidResolution  = errors.New("invalid duplicate resolution")
	ErrInvalidImportInput = errors.New("invalid import item")
)

type DuplicateSuggestions struct {
	CanUpdate    bool `json:"canUpdate"`
	CanCreateNew bool `json:"canCreateNew"`
}

type DuplicateResult struct {
	IsDuplicate  bool                 `json:"isDuplicate"`
	ExistingID   *uuid.UUID           `json:"existingId,omitempty"`
	ExistingData any                  `json:"existingData,omitempty"`
	Message      string               `json:"message"`
	Suggestions  DuplicateSuggestions `json:"suggestions"`
}

// DuplicateError carries the check result back to the handler, which answers 409
type DuplicateError struct {
	Result DuplicateResult
}

func (e *DuplicateError) Error() string { return e.Result.Message }

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }

// Resolution is the caller's answer to a reported duplicate
type Resolution string

const (
	ResolveNone   Resolution = ""
	ResolveUpdate Resolution = "update"
	ResolveCreate Resolution = "create"
	ResolveCancel Resolution = "cancel"
)

func ParseResolution(s string) (Resolution, error) {
	switch Resolution(s) {
	case ResolveNone, ResolveUpdate, ResolveCreate, ResolveCancel:
		return Resolution(s), nil
	}
	return "", ErrInvalidResolution
}

// WriteOutcome is what a guarded create ended up doing
type WriteOutcome string

const (
	OutcomeCreated   WriteOutcome = "created"
	OutcomeUpdated   WriteOutcome = "updated"
	OutcomeCancelled WriteOutcome = "cancelled"
)

// Decide applies the caller's resolution to a check result. A duplicate with
// no resolution is returned as a *DuplicateError.
func Decide(check DuplicateResult, resolution Resolution) (WriteOutcome, error) {
	if resolution == ResolveCancel {
		return OutcomeCancelled, nil
	}
	if !check.IsDuplicate {
		return OutcomeCreated, nil
	}

	switch resolution {
	case ResolveUpdate:
		return OutcomeUpdated, nil
	case ResolveCreate:
		return OutcomeCreated, nil
	}
	return "", &DuplicateError{Result: check}
}

type DuplicateKind string

const (
	DuplicateKindEquipment   DuplicateKind = "equipment"
	DuplicateKindChemical    DuplicateKind = "chemical"
	DuplicateKindMaintenance DuplicateKind = "maintenance"
)

// DuplicateCheckItem is one entry of a batch check. Only the fields relevant
// to Kind are read.
type DuplicateCheckItem struct {
	Kind          DuplicateKind `json:"type"`
	Name          string        `json:"name"`
	Formula       string        `json:"formula"`
	EquipmentID   uuid.UUID     `json:"equipmentId"`
	TaskType      string        `json:"maintenanceType"`
	ScheduledDate time.Time     `json:"scheduledDate"`
	ExcludeID     *uuid.UUID    `json:"excludeId,omitempty"`
}

type IndexedDuplicateResult struct {
	DuplicateResult
	ItemIndex int `json:"itemIndex"`
}

type ImportStrategy string

const (
	ImportSkip   ImportStrategy = "skip"
	ImportUpdate ImportStrategy = "update"
	ImportCreate ImportStrategy = "create"
)

func ParseImportStrategy(s string) (ImportStrategy, error) {
	switch ImportStrategy(s) {
	case "":
		return ImportSkip, nil
	case ImportSkip, ImportUpdate, ImportCreate:
		return ImportStrategy(s), nil
	}
	return "", ErrInvalidResolution
}

type ImportItem struct {
	Type      models.ItemType
	Equipment *models.Equipment
	Chemical  *models.Chemical
}

type ImportError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Updated  int           `json:"updated"`
	Errors   []ImportError `json:"errors"`
}

// DuplicateService decides whether a candidate record collides with an
// existing one. Lookups that fail are either swallowed (fail open) or
// returned (fail closed) depending on DUPLICATE_FAILURE_MODE.
type DuplicateService struct {
	db         database.DB
	repos      repositories.Repository
	failClosed bool
	log        logger.Logger
}

func NewDuplicateService(
	db database.DB,
	repos repositories.Repository,
	config config.Config,
) *DuplicateService {
	return &DuplicateService{
		db:         db,
		repos:      repos,
		failClosed: config.FailClosed(),
		log:        logger.New("DuplicateService"),
	}
}

// conn reuses the caller's transaction when there is one
func (s *DuplicateService) conn(ctx context.Context) *gorm.DB {
	if tx, ok := appContext.GetTransaction(ctx); ok {
		return tx
	}
	return s.db.SQL
}

const duplicateCheckSavepoint = "duplicate_check"

// lookup runs a check query. Inside a transaction the query sits behind a
// savepoint so a failed lookup leaves the transaction usable for the write.
func (s *DuplicateService) lookup(ctx context.Context, query func(*gorm.DB) error) error {
	tx, ok := appContext.GetTransaction(ctx)
	if !ok {
		return query(s.db.SQL)
	}

	if err := tx.WithContext(ctx).SavePoint(duplicateCheckSavepoint).Error; err != nil {
		return err
	}
	if err := query(tx); err != nil {
		if rollbackErr := tx.WithContext(ctx).RollbackTo(duplicateCheckSavepoint).Error; rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}
		return err
	}
	return nil
}

func available(message string, canUpdate bool) DuplicateResult {
	return DuplicateResult{
		Message:     message,
		Suggestions: DuplicateSuggestions{CanUpdate: canUpdate, CanCreateNew: true},
	}
}

func duplicate(id uuid.UUID, existing any, message string) DuplicateResult {
	return DuplicateResult{
		IsDuplicate:  true,
		ExistingID:   &id,
		ExistingData: existing,
		Message:      message,
		Suggestions:  DuplicateSuggestions{CanUpdate: true, CanCreateNew: false},
	}
}

func (s *DuplicateService) checkFailed(
	log logger.Logger,
	kind DuplicateKind,
	err error,
) (DuplicateResult, error) {
	if s.failClosed {
		return DuplicateResult{}, log.Err("duplicate check failed", err, "kind", kind)
	}

	log.Warn("duplicate check failed, allowing write", "kind", kind, "error", err)
	return available("Unable to check for duplicates", false), nil
}

func excluded(id uuid.UUID, excludeID *uuid.UUID) bool {
	return excludeID != nil && *excludeID == id
}

func (s *DuplicateService) CheckEquipment(
	ctx context.Context,
	name string,
	excludeID *uuid.UUID,
) (DuplicateResult, error) {
	log := s.log.TraceFromContext(ctx).Function("CheckEquipment")

	name = strings.TrimSpace(name)
	var matches []*models.Equipment
	err := s.lookup(ctx, func(tx *gorm.DB) (err error) {
		matches, err = s.repos.Equipment.FindByName(ctx, tx, name)
		return err
	})
	if err != nil {
		return s.checkFailed(log, DuplicateKindEquipment, err)
	}

	for _, match := range matches {
		if excluded(match.ID, excludeID) {
			continue
		}
		return duplicate(match.ID, match, fmt.Sprintf(
			"Equipment %q already exists. You can update the existing record instead.", name,
		)), nil
	}

	return available("Equipment name is available", len(matches) > 0), nil
}

func (s *DuplicateService) CheckChemical(
	ctx context.Context,
	name, formula string,
	excludeID *uuid.UUID,
) (DuplicateResult, error) {
	log := s.log.TraceFromContext(ctx).Function("CheckChemical")

	name = strings.TrimSpace(name)
	formula = strings.TrimSpace(formula)
	var matches []*models.Chemical
	err := s.lookup(ctx, func(tx *gorm.DB) (err error) {
		matches, err = s.repos.Chemical.FindByName(ctx, tx, name, formula)
		return err
	})
	if err != nil {
		return s.checkFailed(log, DuplicateKindChemical, err)
	}

	label := name
	if formula != "" {
		label = fmt.Sprintf("%s (%s)", name, formula)
	}

	for _, match := range matches {
		if excluded(match.ID, excludeID) {
			continue
		}
		return duplicate(match.ID, match, fmt.Sprintf(
			"Chemical %q already exists. You can update the quantity instead.", label,
		)), nil
	}

	return available("Chemical is new and available", len(matches) > 0), nil
}

// CheckMaintenance loads every task for the equipment and matches type and
// calendar day, ignoring time of day.
func (s *DuplicateService) CheckMaintenance(
	ctx context.Context,
	equipmentID uuid.UUID,
	taskType string,
	scheduledDate time.Time,
	excludeID *uuid.UUID,
) (DuplicateResult, error) {
	log := s.log.TraceFromContext(ctx).Function("CheckMaintenance")

	taskType = strings.TrimSpace(taskType)
	var tasks []*models.MaintenanceTask
	err := s.lookup(ctx, func(tx *gorm.DB) (err error) {
		tasks, err = s.repos.Maintenance.ListByEquipment(ctx, tx, equipmentID)
		return err
	})
	if err != nil {
		return s.checkFailed(log, DuplicateKindMaintenance, err)
	}

	for _, task := range tasks {
		if excluded(task.ID, excludeID) {
			continue
		}
		if task.Type == taskType && models.SameDay(task.ScheduledDate, scheduledDate) {
			return duplicate(task.ID, task, fmt.Sprintf(
				"A %q maintenance record already exists for this equipment on this date. You can update it instead.",
				taskType,
			)), nil
		}
	}

	return available("Maintenance record is new", false), nil
}

func (s *DuplicateService) CheckMultiple(
	ctx context.Context,
	items []DuplicateCheckItem,
) ([]IndexedDuplicateResult, error) {
	results := make([]IndexedDuplicateResult, 0, len(items))

	for i, item := range items {
		var result DuplicateResult
		var err error

		switch item.Kind {
		case DuplicateKindEquipment:
			result, err = s.CheckEquipment(ctx, item.Name, item.ExcludeID)
		case DuplicateKindChemical:
			result, err = s.CheckChemical(ctx, item.Name, item.Formula, item.ExcludeID)
		case DuplicateKindMaintenance:
			result, err = s.CheckMaintenance(ctx, item.EquipmentID, item.TaskType, item.ScheduledDate, item.ExcludeID)
		default:
			result = available("Unknown type", false)
		}
		if err != nil {
			return nil, err
		}

		results = append(results, IndexedDuplicateResult{DuplicateResult: result, ItemIndex: i})
	}

	return results, nil
}

// Import writes each item, applying onDuplicate to collisions. Each write is
// retried with backoff and failures are reported per index.
func (s *DuplicateService) Import(
	ctx context.Context,
	items []ImportItem,
	onDuplicate ImportStrategy,
) ImportResult {
	log := s.log.TraceFromContext(ctx).Function("Import")
	done := log.Timer("import")
	defer done()

	result := ImportResult{Errors: make([]ImportError, 0)}

	for i, item := range items {
		outcome, err := s.importOne(ctx, item, onDuplicate)
		if err != nil {
			result.Errors = append(result.Errors, ImportError{Index: i, Error: err.Error()})
			continue
		}

		switch outcome {
		case ImportSkip:
			result.Skipped++
		case ImportUpdate:
			result.Updated++
		case ImportCreate:
			result.Imported++
		}
	}

	log.Info("Import finished",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"updated", result.Updated,
		"errors", len(result.Errors),
	)
	return result
}

func (s *DuplicateService) importOne(
	ctx context.Context,
	item ImportItem,
	onDuplicate ImportStrategy,
) (ImportStrategy, error) {
	var check DuplicateResult
	var err error

	switch {
	case item.Type == models.ItemTypeEquipment && item.Equipment != nil:
		check, err = s.CheckEquipment(ctx, item.Equipment.Name, nil)
	case item.Type == models.ItemTypeChemical && item.Chemical != nil:
		check, err = s.CheckChemical(ctx, item.Chemical.Name, item.Chemical.Formula, nil)
	default:
		return "", ErrInvalidImportInput
	}
	if err != nil {
		return "", err
	}

	if check.IsDuplicate {
		switch onDuplicate {
		case ImportSkip:
			return ImportSkip, nil
		case ImportUpdate:
			return ImportUpdate, WriteWithBackoff(ctx, func(ctx context.Context) error {
				return s.mergeInto(ctx, item, *check.ExistingID)
			}, DefaultWriteRetries, DefaultWriteInitialDelay)
		}
	}

	return ImportCreate, WriteWithBackoff(ctx, func(ctx context.Context) error {
		return s.create(ctx, item)
	}, DefaultWriteRetries, DefaultWriteInitialDelay)
}

func (s *DuplicateService) create(ctx context.Context, item ImportItem) error {
	// a failed attempt may have assigned an id in BeforeCreate
	if item.Type == models.ItemTypeEquipment {
		record := *item.Equipment
		return s.repos.Equipment.Create(ctx, s.conn(ctx), &record)
	}
	record := *item.Chemical
	return s.repos.Chemical.Create(ctx, s.conn(ctx), &record)
}

func (s *DuplicateService) mergeInto(ctx context.Context, item ImportItem, existingID uuid.UUID) error {
	var err error
	if item.Type == models.ItemTypeEquipment {
		_, err = s.repos.Equipment.Update(ctx, s.conn(ctx), existingID, EquipmentFields(item.Equipment))
	} else {
		_, err = s.repos.Chemical.Update(ctx, s.conn(ctx), existingID, ChemicalFields(item.Chemical))
	}
	return err
}

// EquipmentFields is the column map used when merging an incoming record into
// an existing one. Empty text fields leave the stored value alone.
func EquipmentFields(e *models.Equipment) map[string]any {
	fields := map[string]any{"quantity": e.Quantity}
	setText(fields, "name", e.Name)
	setText(fields, "category", e.Category)
	setText(fields, "location", e.Location)
	setText(fields, "condition", e.Condition)
	setText(fields, "status", string(e.Status))
	if e.Code != nil {
		fields["code"] = strings.TrimSpace(*e.Code)
	}
	if e.PurchaseDate != nil {
		fields["purchase_date"] = *e.PurchaseDate
	}
	if e.LastMaintenance != nil {
		fields["last_maintenance"] = *e.LastMaintenance
	}
	return fields
}

func ChemicalFields(c *models.Chemical) map[string]any {
	fields := map[string]any{"quantity": c.Quantity}
	setText(fields, "name", c.Name)
	setText(fields, "formula", c.Formula)
	setText(fields, "unit", c.Unit)
	setText(fields, "location", c.Location)
	setText(fields, "hazard_level", string(c.HazardLevel))
	if c.Code != nil {
		fields["code"] = strings.TrimSpace(*c.Code)
	}
	if c.ExpiryDate != nil {
		fields["expiry_date"] = *c.ExpiryDate
	}
	if c.Supplier != nil {
		fields["supplier"] = *c.Supplier
	}
	return fields
}

func setText(fields map[string]any, column, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fields[column] = value
	}
}

func MaintenanceFields(m *models.MaintenanceTask) map[string]any {
	fields := map[string]any{"scheduled_date": m.ScheduledDate}
	setText(fields, "type", m.Type)
	setText(fields, "status", string(m.Status))
	setText(fields, "priority", string(m.Priority))
	setText(fields, "assigned_to", m.AssignedTo)
	if m.Notes != nil {
		fields["notes"] = *m.Notes
	}
	if m.Description != nil {
		fields["description"] = *m.Description
	}
	if m.CompletedDate != nil {
		fields["completed_date"] = *m.CompletedDate
	}
	if m.Cost != nil {
		fields["cost"] = *m.Cost
	}
	return fields
}
