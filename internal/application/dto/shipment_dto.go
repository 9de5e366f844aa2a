package dto

import (
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// ShipmentLineRequest línea de un envío. Para productos packable se puede enviar
// PackSize + TotalUnits en lugar de Quantity: se crean TotalUnits/PackSize unidades del producto pack.
type ShipmentLineRequest struct {
	ProductID  string `json:"product_id" validate:"required"`
	Quantity   int    `json:"quantity"`
	PackSize   int    `json:"pack_size,omitempty"`
	TotalUnits int    `json:"total_units,omitempty"`
}

// HasPackConfig indica si la línea trae configuración de pack.
func (l ShipmentLineRequest) HasPackConfig() bool {
	return l.PackSize > 0 || l.TotalUnits > 0
}

// CreateShipmentRequest entrada para registrar un envío de proveedor.
type CreateShipmentRequest struct {
	ProviderName  string                `json:"provider_name" validate:"required"`
	ReceiptNumber string                `json:"receipt_number"`
	Notes         string                `json:"notes"`
	Items         []ShipmentLineRequest `json:"items" validate:"required,min=1"`
}

// ShipmentUnitResponse unidad creada (para imprimir etiquetas).
type ShipmentUnitResponse struct {
	ID        string `json:"id"`
	QRCode    string `json:"qr_code"`
	ProductID string `json:"product_id"`
	Status    string `json:"status"`
}

// PackProductResponse producto pack resuelto durante el envío.
type PackProductResponse struct {
	ProductID     string `json:"product_id"`
	BaseProductID string `json:"base_product_id"`
	PackSize      int    `json:"pack_size"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Created       bool   `json:"created"`
}

// ShipmentResponse salida de un envío.
type ShipmentResponse struct {
	ID            string                 `json:"id"`
	ProviderName  string                 `json:"provider_name"`
	ReceiptNumber string                 `json:"receipt_number"`
	Notes         string                 `json:"notes,omitempty"`
	Status        string                 `json:"status"`
	TotalUnits    int                    `json:"total_units"`
	ReceivedAt    *time.Time             `json:"received_at,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	StatusCounts  map[string]int         `json:"status_counts,omitempty"`
	Units         []ShipmentUnitResponse `json:"units,omitempty"`
	PackProducts  []PackProductResponse  `json:"pack_products,omitempty"`
}

// NewShipmentResponse mapea la entidad.
func NewShipmentResponse(sh *entity.Shipment) *ShipmentResponse {
	return &ShipmentResponse{
		ID:            sh.ID,
		ProviderName:  sh.ProviderName,
		ReceiptNumber: sh.ReceiptNumber,
		Notes:         sh.Notes,
		Status:        string(sh.Status),
		TotalUnits:    sh.TotalUnits,
		ReceivedAt:    sh.ReceivedAt,
		CreatedAt:     sh.CreatedAt,
	}
}
