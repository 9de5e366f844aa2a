package entity

import (
	"encoding/json"
	"time"
)

// WarrantyStatus estado de garantía de una unidad registrada en el portal.
type WarrantyStatus string

const (
	WarrantyNone    WarrantyStatus = "none"
	WarrantyActive  WarrantyStatus = "active"
	WarrantyExpired WarrantyStatus = "expired"
	WarrantyVoid    WarrantyStatus = "void"
)

// WarrantyAt calcula el estado a la fecha at: start + months.
// Un estado void es definitivo.
func WarrantyAt(current WarrantyStatus, start *time.Time, months int, at time.Time) (WarrantyStatus, *time.Time) {
	if current == WarrantyVoid {
		return WarrantyVoid, nil
	}
	if start == nil || months <= 0 {
		return WarrantyNone, nil
	}
	end := start.AddDate(0, months, 0)
	if at.Before(end) {
		return WarrantyActive, &end
	}
	return WarrantyExpired, &end
}

// CustomerProduct unidad registrada por el portal a nombre de un cliente.
type CustomerProduct struct {
	ID              string
	QRCode          string
	CustomerID      string
	ShopifyOrderID  string
	ProductDetails  json.RawMessage
	PurchaseDate    time.Time
	WarrantyMonths  int
	WarrantyStatus  WarrantyStatus
	WarrantyStartAt *time.Time
	Returned        bool
	ReplacedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CustomerScan auditoría de cada verificación de autenticidad.
type CustomerScan struct {
	ID         string
	QRCode     string
	CustomerID string
	Found      bool
	IPAddress  string
	UserAgent  string
	ScannedAt  time.Time
}
