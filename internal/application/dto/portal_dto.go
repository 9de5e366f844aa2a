package dto

import (
	"encoding/json"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// Eventos que la bodega publica hacia el portal de clientes.
const (
	EventProductSold     = "product.sold"
	EventProductReturned = "product.returned"
	EventProductReplaced = "product.replaced"
)

// PortalProductDetails ficha del producto que viaja con cada evento.
type PortalProductDetails struct {
	ProductID   string `json:"productId"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	Color       string `json:"color,omitempty"`
	ProductType string `json:"productType,omitempty"`
}

// WarehouseSyncData datos de la unidad afectada.
type WarehouseSyncData struct {
	QRCode         string               `json:"qrCode"`
	ShopifyOrderID string               `json:"shopifyOrderId,omitempty"`
	CustomerID     string               `json:"customerId,omitempty"`
	ProductDetails PortalProductDetails `json:"productDetails"`
	PurchaseDate   *time.Time           `json:"purchaseDate,omitempty"`
	WarrantyMonths int                  `json:"warrantyMonths"`
	ReplacesQRCode string               `json:"replacesQrCode,omitempty"`
}

// WarehouseSyncEvent cuerpo de POST /api/webhooks/warehouse-sync.
type WarehouseSyncEvent struct {
	Event string            `json:"event"`
	Data  WarehouseSyncData `json:"data"`
}

// WarehouseSyncResponse respuesta del webhook.
type WarehouseSyncResponse struct {
	Success       bool   `json:"success"`
	ProductUnitID string `json:"productUnitId,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewSoldEvent arma el evento product.sold de una unidad vendida.
func NewSoldEvent(u *entity.Unit, p *entity.Product, shopifyOrderID, customerID string, at time.Time) WarehouseSyncEvent {
	when := at
	return WarehouseSyncEvent{
		Event: EventProductSold,
		Data: WarehouseSyncData{
			QRCode:         u.QRCode,
			ShopifyOrderID: shopifyOrderID,
			CustomerID:     customerID,
			ProductDetails: NewPortalProductDetails(p),
			PurchaseDate:   &when,
			WarrantyMonths: u.WarrantyMonths,
		},
	}
}

// NewReturnedEvent arma el evento product.returned.
func NewReturnedEvent(u *entity.Unit, p *entity.Product) WarehouseSyncEvent {
	return WarehouseSyncEvent{
		Event: EventProductReturned,
		Data: WarehouseSyncData{
			QRCode:         u.QRCode,
			ProductDetails: NewPortalProductDetails(p),
			WarrantyMonths: u.WarrantyMonths,
		},
	}
}

// NewPortalProductDetails ficha del producto; p puede ser nil.
func NewPortalProductDetails(p *entity.Product) PortalProductDetails {
	if p == nil {
		return PortalProductDetails{}
	}
	return PortalProductDetails{
		ProductID:   p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Brand:       p.Brand,
		Model:       p.Model,
		Color:       p.Color,
		ProductType: p.ProductType,
	}
}

// VerifyOwnership bloque visible sólo para el dueño de la unidad.
type VerifyOwnership struct {
	CustomerID     string     `json:"customerId"`
	ShopifyOrderID string     `json:"shopifyOrderId,omitempty"`
	PurchaseDate   time.Time  `json:"purchaseDate"`
	WarrantyEndsAt *time.Time `json:"warrantyEndsAt,omitempty"`
}

// VerifyResponse resultado de GET /api/products/verify/:qrCode.
type VerifyResponse struct {
	Authentic      bool             `json:"authentic"`
	QRCode         string           `json:"qrCode"`
	Product        json.RawMessage  `json:"product,omitempty"`
	WarrantyStatus string           `json:"warrantyStatus"`
	WarrantyMonths int              `json:"warrantyMonths"`
	Returned       bool             `json:"returned"`
	ReplacedBy     string           `json:"replacedBy,omitempty"`
	Ownership      *VerifyOwnership `json:"ownership,omitempty"`
}
