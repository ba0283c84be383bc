package qrController

import (
	"context"

	"labventory/internal/authz"
	. "labventory/internal/models"
	"labventory/internal/services"
	"labventory/pkg/logger"

	"github.com/google/uuid"
)

type QRController struct {
	qrService *services.QRService
	log       logger.Logger
}

type ScanRequest struct {
	Text string `json:"text" validate:"notblank"`
}

type LabelsRequest struct {
	Items []ItemRef `json:"items" validate:"required,min=1,max=210"`
}

type QRControllerInterface interface {
	Scan(ctx context.Context, user *UserProfile, request *ScanRequest) (InventoryItem, error)
	PNG(ctx context.Context, itemType ItemType, id uuid.UUID) ([]byte, error)
	Labels(ctx context.Context, user *UserProfile, request *LabelsRequest) ([]byte, error)
}

func New(services services.Service) QRControllerInterface {
	return &QRController{
		qrService: services.QR,
		log:       logger.New("qrController"),
	}
}

// ReadPermission is the permission needed to look at items of itemType
func ReadPermission(itemType ItemType) (authz.Permission, error) {
	switch itemType {
	case ItemTypeEquipment:
		return authz.EquipmentRead, nil
	case ItemTypeChemical:
		return authz.ChemicalRead, nil
	}
	return "", ErrInvalidItemType
}

func canRead(user *UserProfile, itemType ItemType) error {
	permission, err := ReadPermission(itemType)
	if err != nil {
		return err
	}
	return authz.Require(user, permission)
}

// Scan decodes a scanned payload and resolves it. A scan can land on a
// chemical, so the caller needs read access to whatever was found.
func (qc *QRController) Scan(
	ctx context.Context,
	user *UserProfile,
	request *ScanRequest,
) (InventoryItem, error) {
	item, err := qc.qrService.Resolve(ctx, services.DecodeQR(request.Text))
	if err != nil {
		return InventoryItem{}, err
	}
	if err := canRead(user, item.Type); err != nil {
		return InventoryItem{}, err
	}
	return item, nil
}

func (qc *QRController) PNG(ctx context.Context, itemType ItemType, id uuid.UUID) ([]byte, error) {
	item, err := qc.qrService.Lookup(ctx, itemType, id)
	if err != nil {
		return nil, err
	}
	return qc.qrService.PNG(item)
}

func (qc *QRController) Labels(
	ctx context.Context,
	user *UserProfile,
	request *LabelsRequest,
) ([]byte, error) {
	log := qc.log.Function("Labels")

	items := make([]InventoryItem, 0, len(request.Items))
	for _, ref := range request.Items {
		if err := canRead(user, ref.Type); err != nil {
			return nil, err
		}

		item, err := qc.qrService.Lookup(ctx, ref.Type, ref.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	sheet, err := qc.qrService.LabelSheet(items)
	if err != nil {
		return nil, log.Err("failed to build label sheet", err, "count", len(items))
	}
	return sheet, nil
}
