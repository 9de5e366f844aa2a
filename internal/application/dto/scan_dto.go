package dto

import (
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ReceiveRequest escaneo de entrada.
type ReceiveRequest struct {
	Code            string `json:"code" validate:"required"`
	StorageLocation string `json:"storage_location"`
}

// SellRequest escaneo de venta en tienda.
type SellRequest struct {
	Code string `json:"code" validate:"required"`
}

// UnitResponse unidad con su producto.
type UnitResponse struct {
	ID              string     `json:"id"`
	QRCode          string     `json:"qr_code"`
	Status          string     `json:"status"`
	ProductID       string     `json:"product_id"`
	ProductName     string     `json:"product_name,omitempty"`
	ProductSKU      string     `json:"product_sku,omitempty"`
	ShipmentID      *string    `json:"shipment_id,omitempty"`
	SourceType      string     `json:"source_type"`
	StorageLocation string     `json:"storage_location,omitempty"`
	WarrantyMonths  int        `json:"warranty_months"`
	ReceivedAt      *time.Time `json:"received_at,omitempty"`
	SoldAt          *time.Time `json:"sold_at,omitempty"`
}

// NewUnitResponse mapea unidad + producto (p puede ser nil).
func NewUnitResponse(u *entity.Unit, p *entity.Product) *UnitResponse {
	r := &UnitResponse{
		ID:              u.ID,
		QRCode:          u.QRCode,
		Status:          string(u.Status),
		ProductID:       u.ProductID,
		ShipmentID:      u.ShipmentID,
		SourceType:      string(u.SourceType),
		StorageLocation: u.StorageLocation,
		WarrantyMonths:  u.WarrantyMonths,
		ReceivedAt:      u.ReceivedAt,
		SoldAt:          u.SoldAt,
	}
	if p != nil {
		r.ProductName, r.ProductSKU = p.Name, p.SKU
	}
	return r
}

// ReceiveResponse resultado del escaneo de entrada.
type ReceiveResponse struct {
	Unit           *UnitResponse `json:"unit"`
	ShipmentStatus string        `json:"shipment_status,omitempty"`
	PendingUnits   int           `json:"pending_units"`
}

// SessionResponse estado fusionado de la sesión de escaneo.
type SessionResponse struct {
	Fields    map[string]string    `json:"fields"`
	Items     []entity.SessionItem `json:"items"`
	Version   int                  `json:"version"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewSessionResponse aplana la sesión.
func NewSessionResponse(s *entity.ScanningSession) *SessionResponse {
	fields := make(map[string]string, len(s.Fields))
	for k, f := range s.Fields {
		fields[k] = f.Value
	}
	items := s.ItemList()
	if items == nil {
		items = []entity.SessionItem{}
	}
	return &SessionResponse{Fields: fields, Items: items, Version: s.Version, UpdatedAt: s.UpdatedAt}
}
