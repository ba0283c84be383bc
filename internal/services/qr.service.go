package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"labventory/internal/database"
	"labventory/internal/models"
	"labventory/internal/repositories"
	"labventory/pkg/logger"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	QRImageSize   = 256
	labelColumns  = 3
	labelRows     = 7
	labelMarginMM = 10.0
	labelGapMM    = 4.0
)

var ErrEmptyQRPayload = errors.New("qr payload has neither id nor code")

// QRPayload is the JSON printed into inventory QR codes
type QRPayload struct {
	ID        *uuid.UUID      `json:"id,omitempty"`
	Type      models.ItemType `json:"type,omitempty"`
	Code      string          `json:"code,omitempty"`
	Name      string          `json:"name,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

type rawQRPayload struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

func EncodeQR(item models.InventoryItem, now time.Time) (string, error) {
	id := item.ID()
	generated := now.UTC()
	payload := QRPayload{
		ID:        &id,
		Type:      item.Type,
		Code:      item.Code(),
		Name:      item.Name(),
		Timestamp: &generated,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeQR parses a scanned payload. Text that is not a JSON object is
// treated as a bare item code.
func DecodeQR(text string) QRPayload {
	text = strings.TrimSpace(text)

	var raw rawQRPayload
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return QRPayload{Code: text}
	}

	payload := QRPayload{
		Code: strings.TrimSpace(raw.Code),
		Name: raw.Name,
	}
	if id, err := uuid.Parse(raw.ID); err == nil {
		payload.ID = &id
	}
	if itemType, err := models.ParseItemType(raw.Type); err == nil {
		payload.Type = itemType
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
		payload.Timestamp = &ts
	}
	return payload
}

type QRService struct {
	db    database.DB
	repos repositories.Repository
	log   logger.Logger
}

func NewQRService(db database.DB, repos repositories.Repository) *QRService {
	return &QRService{
		db:    db,
		repos: repos,
		log:   logger.New("QRService"),
	}
}

// Resolve finds the item a payload points at: by id when present, otherwise
// by code, trying equipment before chemicals.
func (s *QRService) Resolve(ctx context.Context, payload QRPayload) (models.InventoryItem, error) {
	if payload.ID != nil {
		return s.Lookup(ctx, payload.Type, *payload.ID)
	}

	if payload.Code == "" {
		return models.InventoryItem{}, ErrEmptyQRPayload
	}

	equipment, err := s.repos.Equipment.GetByCode(ctx, s.db.SQL, payload.Code)
	if err == nil {
		return models.EquipmentItem(equipment), nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return models.InventoryItem{}, err
	}

	chemical, err := s.repos.Chemical.GetByCode(ctx, s.db.SQL, payload.Code)
	if err != nil {
		return models.InventoryItem{}, err
	}
	return models.ChemicalItem(chemical), nil
}

// Lookup resolves an id. An empty type tries equipment first.
func (s *QRService) Lookup(
	ctx context.Context,
	itemType models.ItemType,
	id uuid.UUID,
) (models.InventoryItem, error) {
	if itemType == "" || itemType == models.ItemTypeEquipment {
		equipment, err := s.repos.Equipment.GetByID(ctx, s.db.SQL, id)
		if err == nil {
			return models.EquipmentItem(equipment), nil
		}
		if itemType != "" || !errors.Is(err, repositories.ErrNotFound) {
			return models.InventoryItem{}, err
		}
	}

	chemical, err := s.repos.Chemical.GetByID(ctx, s.db.SQL, id)
	if err != nil {
		return models.InventoryItem{}, err
	}
	return models.ChemicalItem(chemical), nil
}

func (s *QRService) PNG(item models.InventoryItem) ([]byte, error) {
	log := s.log.Function("PNG")

	content, err := EncodeQR(item, time.Now())
	if err != nil {
		return nil, log.Err("failed to encode qr payload", err, "itemID", item.ID())
	}

	png, err := qrcode.Encode(content, qrcode.Medium, QRImageSize)
	if err != nil {
		return nil, log.Err("failed to render qr code", err, "itemID", item.ID())
	}
	return png, nil
}

// LabelSheet lays the items out as a printable A4 grid, one QR code and name per cell
func (s *QRService) LabelSheet(items []models.InventoryItem) ([]byte, error) {
	log := s.log.Function("LabelSheet")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 8)

	pageWidth, pageHeight := pdf.GetPageSize()
	labelW := (pageWidth - 2*labelMarginMM - float64(labelColumns-1)*labelGapMM) / labelColumns
	labelH := (pageHeight - 2*labelMarginMM - float64(labelRows-1)*labelGapMM) / labelRows
	perPage := labelColumns * labelRows

	imageOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}

	if len(items) == 0 {
		pdf.AddPage()
	}

	for i, item := range items {
		if i%perPage == 0 {
			pdf.AddPage()
		}

		png, err := s.PNG(item)
		if err != nil {
			return nil, err
		}

		slot := i % perPage
		x := labelMarginMM + float64(slot%labelColumns)*(labelW+labelGapMM)
		y := labelMarginMM + float64(slot/labelColumns)*(labelH+labelGapMM)

		imageName := fmt.Sprintf("qr_%d", i)
		pdf.RegisterImageOptionsReader(imageName, imageOptions, bytes.NewReader(png))

		qrSize := labelH * 0.75
		if qrSize > labelW {
			qrSize = labelW * 0.9
		}
		pdf.ImageOptions(imageName, x+(labelW-qrSize)/2, y+1, qrSize, qrSize, false, imageOptions, 0, "")

		pdf.SetXY(x, y+qrSize+1)
		pdf.CellFormat(labelW, 4, pdf.UnicodeTranslatorFromDescriptor("")(item.Name()), "", 2, "C", false, 0, "")
		if code := item.Code(); code != "" {
			pdf.SetFontSize(6)
			pdf.CellFormat(labelW, 3, code, "", 0, "C", false, 0, "")
			pdf.SetFontSize(8)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, log.Err("failed to write label sheet", err, "count", len(items))
	}
	return buf.Bytes(), nil
}
