package dto

import (
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// Modos de asignación de inventario.
const (
	AllocationDeferred = "deferred"
	AllocationReserve  = "reserve"
)

// LineItem línea de pedido identificada por SKU externo (Shopify o POS).
type LineItem struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// CustomerInput datos del cliente tal como llegan del canal de venta.
type CustomerInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// ProcessOrderRequest pedido completo: cliente, líneas y modo de asignación.
type ProcessOrderRequest struct {
	ShopifyOrderID string        `json:"shopify_order_id"`
	Customer       CustomerInput `json:"customer"`
	Items          []LineItem    `json:"items" validate:"required,min=1"`
	Mode           string        `json:"mode"`
	Notes          string        `json:"notes"`
}

// AllocateRequest creación del pedido para un cliente ya resuelto.
type AllocateRequest struct {
	CustomerID     string
	ShopifyOrderID string
	Items          []LineItem
	Mode           string
	Notes          string
	CreatedBy      string
}

// ValidateOrderRequest sólo líneas, para verificar disponibilidad.
type ValidateOrderRequest struct {
	Items []LineItem `json:"items" validate:"required,min=1"`
}

// AvailabilityLine disponibilidad por producto.
type AvailabilityLine struct {
	SKU       string `json:"sku"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// FulfillOrderRequest códigos escaneados al preparar el pedido.
type FulfillOrderRequest struct {
	Codes []string `json:"codes" validate:"required,min=1"`
}

// ShipOrderRequest datos de transporte.
type ShipOrderRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

// OrderItemResponse ítem del pedido.
type OrderItemResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	ShipmentItemID *string `json:"shipment_item_id"`
}

// OrderResponse salida de un pedido.
type OrderResponse struct {
	ID             string              `json:"id"`
	CustomerID     string              `json:"customer_id"`
	ShopifyOrderID string              `json:"shopify_order_id,omitempty"`
	Status         string              `json:"status"`
	Items          []OrderItemResponse `json:"items"`
	Unbound        int                 `json:"unbound_items"`
	CreatedAt      time.Time           `json:"created_at"`
	Delivery       *DeliveryResponse   `json:"delivery,omitempty"`
}

// NewOrderResponse mapea la entidad.
func NewOrderResponse(o *entity.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, ShipmentItemID: it.ShipmentItemID}
	}
	return &OrderResponse{
		ID:             o.ID,
		CustomerID:     o.CustomerID,
		ShopifyOrderID: o.ShopifyOrderID,
		Status:         string(o.Status),
		Items:          items,
		Unbound:        len(o.UnboundItems()),
		CreatedAt:      o.CreatedAt,
	}
}

// UpdateDeliveryStatusRequest cambio de estado de una entrega.
type UpdateDeliveryStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

// SetResolutionTypeRequest tipo de resolución elegido.
type SetResolutionTypeRequest struct {
	Type string `json:"type" validate:"required"`
}

// CompleteResolutionRequest cierre de la resolución.
type CompleteResolutionRequest struct {
	StorageLocation string `json:"storage_location"`
	Notes           string `json:"notes"`
}

// DeliveryResponse salida de una entrega.
type DeliveryResponse struct {
	ID             string              `json:"id"`
	OrderID        string              `json:"order_id"`
	Status         string              `json:"status"`
	Carrier        string              `json:"carrier,omitempty"`
	TrackingNumber string              `json:"tracking_number,omitempty"`
	FailureReason  string              `json:"failure_reason,omitempty"`
	FailedAt       *time.Time          `json:"failed_at,omitempty"`
	DeliveredAt    *time.Time          `json:"delivered_at,omitempty"`
	Resolution     *ResolutionResponse `json:"resolution,omitempty"`
}

// NewDeliveryResponse mapea la entidad.
func NewDeliveryResponse(d *entity.Delivery) *DeliveryResponse {
	return &DeliveryResponse{
		ID:             d.ID,
		OrderID:        d.OrderID,
		Status:         string(d.Status),
		Carrier:        d.Carrier,
		TrackingNumber: d.TrackingNumber,
		FailureReason:  d.FailureReason,
		FailedAt:       d.FailedAt,
		DeliveredAt:    d.DeliveredAt,
	}
}

// ResolutionResponse salida de una resolución.
type ResolutionResponse struct {
	ID              string     `json:"id"`
	DeliveryID      string     `json:"delivery_id"`
	Status          string     `json:"status"`
	Type            string     `json:"type,omitempty"`
	StorageLocation string     `json:"storage_location,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewResolutionResponse mapea la entidad.
func NewResolutionResponse(r *entity.DeliveryResolution) *ResolutionResponse {
	return &ResolutionResponse{
		ID:              r.ID,
		DeliveryID:      r.DeliveryID,
		Status:          string(r.Status),
		Type:            string(r.Type),
		StorageLocation: r.StorageLocation,
		CompletedAt:     r.CompletedAt,
	}
}
